package index

import (
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Map is a mapping from typed keys to typed values. Keys are stored as
// their serialized bytes, so iteration follows the byte order of the
// serialized keys, not the insertion order.
type Map[K any, V any] struct {
	base
	keySerializer   common.Serializer[K]
	valueSerializer common.Serializer[V]
}

// NewMap creates a map index at the given address over the view.
func NewMap[K any, V any](address Address, view storage.View,
	keySerializer common.Serializer[K], valueSerializer common.Serializer[V]) *Map[K, V] {
	return &Map[K, V]{
		base:            newBase(address, view),
		keySerializer:   keySerializer,
		valueSerializer: valueSerializer,
	}
}

// Get returns the value stored under the key. A missing key is
// reported through the found flag, not as an error.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	raw, found, err := m.view.Get(m.keyOf(key))
	if err != nil || !found {
		return zero, false, err
	}
	value, err := m.valueSerializer.FromBytes(raw)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// ContainsKey reports whether the key is present.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	_, found, err := m.view.Get(m.keyOf(key))
	return found, err
}

// Put associates the value with the key, overwriting a previous value.
func (m *Map[K, V]) Put(key K, value V) error {
	w, err := m.writer()
	if err != nil {
		return err
	}
	return w.Put(m.keyOf(key), m.valueSerializer.ToBytes(value))
}

// Remove deletes the key. Removing a missing key is not an error.
func (m *Map[K, V]) Remove(key K) error {
	w, err := m.writer()
	if err != nil {
		return err
	}
	return w.Delete(m.keyOf(key))
}

// Clear removes all entries of this index without affecting any other
// index, including other members of the same group.
func (m *Map[K, V]) Clear() error {
	w, err := m.writer()
	if err != nil {
		return err
	}
	return w.ClearPrefix(m.prefix)
}

// Entries returns a lazy iterator over all key-value pairs, ordered by
// the byte representation of the serialized keys ascending.
func (m *Map[K, V]) Entries() common.Iterator[common.MapEntry[K, V]] {
	return &mapIterator[K, V]{
		m:     m,
		raw:   m.view.Iterate(m.dataPrefix()),
		strip: len(m.dataPrefix()),
	}
}

// Keys returns a lazy iterator over all keys in entry order.
func (m *Map[K, V]) Keys() common.Iterator[K] {
	return mapAdapter[common.MapEntry[K, V], K]{
		inner:   m.Entries(),
		project: func(e common.MapEntry[K, V]) K { return e.Key },
	}
}

// Values returns a lazy iterator over all values in entry order.
func (m *Map[K, V]) Values() common.Iterator[V] {
	return mapAdapter[common.MapEntry[K, V], V]{
		inner:   m.Entries(),
		project: func(e common.MapEntry[K, V]) V { return e.Val },
	}
}

func (m *Map[K, V]) keyOf(key K) []byte {
	return m.dataKey(m.keySerializer.ToBytes(key))
}

type mapIterator[K any, V any] struct {
	m     *Map[K, V]
	raw   storage.Iterator
	strip int
	entry common.MapEntry[K, V]
	err   error
}

func (it *mapIterator[K, V]) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.raw.Next() {
		it.err = it.raw.Error()
		return false
	}
	key, err := it.m.keySerializer.FromBytes(it.raw.Key()[it.strip:])
	if err != nil {
		it.err = err
		return false
	}
	value, err := it.m.valueSerializer.FromBytes(it.raw.Value())
	if err != nil {
		it.err = err
		return false
	}
	it.entry = common.MapEntry[K, V]{Key: key, Val: value}
	return true
}

func (it *mapIterator[K, V]) Value() common.MapEntry[K, V] {
	return it.entry
}

func (it *mapIterator[K, V]) Error() error {
	return it.err
}

func (it *mapIterator[K, V]) Release() {
	it.raw.Release()
}

// mapAdapter projects an iterator of one element type onto another.
type mapAdapter[I any, O any] struct {
	inner   common.Iterator[I]
	project func(I) O
}

func (a mapAdapter[I, O]) Next() bool {
	return a.inner.Next()
}

func (a mapAdapter[I, O]) Value() O {
	return a.project(a.inner.Value())
}

func (a mapAdapter[I, O]) Error() error {
	return a.inner.Error()
}

func (a mapAdapter[I, O]) Release() {
	a.inner.Release()
}
