package index

import (
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// KeySet is a set of typed elements offering membership queries only.
// It is a map whose value space is a unit marker; elements iterate in
// the byte order of their serialized form.
type KeySet[T any] struct {
	entries *Map[T, struct{}]
}

// NewKeySet creates a key set index at the given address over the view.
func NewKeySet[T any](address Address, view storage.View, serializer common.Serializer[T]) *KeySet[T] {
	return &KeySet[T]{
		entries: NewMap[T, struct{}](address, view, serializer, unitSerializer{}),
	}
}

// Address returns the address the set was constructed with.
func (s *KeySet[T]) Address() Address {
	return s.entries.Address()
}

// Add puts the element into the set. Adding a present element has no
// effect.
func (s *KeySet[T]) Add(element T) error {
	return s.entries.Put(element, struct{}{})
}

// Remove deletes the element. Removing a missing element is not an
// error.
func (s *KeySet[T]) Remove(element T) error {
	return s.entries.Remove(element)
}

// Contains reports whether the element is in the set.
func (s *KeySet[T]) Contains(element T) (bool, error) {
	return s.entries.ContainsKey(element)
}

// Clear removes all elements of the set.
func (s *KeySet[T]) Clear() error {
	return s.entries.Clear()
}

// Iterator returns a lazy iterator over the elements, ordered by their
// serialized byte representation ascending.
func (s *KeySet[T]) Iterator() common.Iterator[T] {
	return s.entries.Keys()
}

// unitSerializer persists the unit marker as an empty byte string.
type unitSerializer struct{}

func (unitSerializer) ToBytes(struct{}) []byte {
	return []byte{}
}

func (unitSerializer) FromBytes([]byte) (struct{}, error) {
	return struct{}{}, nil
}

func (unitSerializer) Size() int {
	return 0
}
