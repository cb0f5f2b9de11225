package index

import (
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Entry is a single optional typed value, a degenerate map with one
// implicit key.
type Entry[T any] struct {
	base
	serializer common.Serializer[T]
}

// NewEntry creates an entry index at the given address over the view.
func NewEntry[T any](address Address, view storage.View, serializer common.Serializer[T]) *Entry[T] {
	return &Entry[T]{
		base:       newBase(address, view),
		serializer: serializer,
	}
}

// Get returns the stored value. An unset entry is reported through the
// found flag, not as an error.
func (e *Entry[T]) Get() (T, bool, error) {
	var zero T
	raw, found, err := e.view.Get(e.metaKey())
	if err != nil || !found {
		return zero, false, err
	}
	value, err := e.serializer.FromBytes(raw)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// Exists reports whether the entry holds a value.
func (e *Entry[T]) Exists() (bool, error) {
	_, found, err := e.view.Get(e.metaKey())
	return found, err
}

// Set stores the value, overwriting a previous one.
func (e *Entry[T]) Set(value T) error {
	w, err := e.writer()
	if err != nil {
		return err
	}
	return w.Put(e.metaKey(), e.serializer.ToBytes(value))
}

// Remove unsets the entry. Removing an unset entry is not an error.
func (e *Entry[T]) Remove() error {
	w, err := e.writer()
	if err != nil {
		return err
	}
	return w.Delete(e.metaKey())
}
