package index

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// List is an ordered sequence of typed elements addressable by 0-based
// position. The length is kept in the metadata cell; each element is
// stored under its big-endian encoded position, so raw iteration order
// matches position order.
type List[T any] struct {
	base
	serializer common.Serializer[T]
}

// NewList creates a list index at the given address over the view.
func NewList[T any](address Address, view storage.View, serializer common.Serializer[T]) *List[T] {
	return &List[T]{
		base:       newBase(address, view),
		serializer: serializer,
	}
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() (uint64, error) {
	raw, found, err := l.view.Get(l.metaKey())
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	length, err := (common.Uint64Serializer{}).FromBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt length of list %s: %w", l.address, err)
	}
	return length, nil
}

// IsEmpty reports whether the list has no elements.
func (l *List[T]) IsEmpty() (bool, error) {
	length, err := l.Len()
	return length == 0, err
}

// Get returns the element at the given position. Positions at or
// beyond the list length report an ErrArgument failure.
func (l *List[T]) Get(i uint64) (T, error) {
	var zero T
	length, err := l.Len()
	if err != nil {
		return zero, err
	}
	if i >= length {
		return zero, fmt.Errorf("%w: position %d out of bounds (length %d) in list %s",
			common.ErrArgument, i, length, l.address)
	}
	raw, found, err := l.view.Get(l.elementKey(i))
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%w: missing element %d of list %s", common.ErrFormat, i, l.address)
	}
	return l.serializer.FromBytes(raw)
}

// Set replaces the element at an existing position.
func (l *List[T]) Set(i uint64, value T) error {
	w, err := l.writer()
	if err != nil {
		return err
	}
	length, err := l.Len()
	if err != nil {
		return err
	}
	if i >= length {
		return fmt.Errorf("%w: position %d out of bounds (length %d) in list %s",
			common.ErrArgument, i, length, l.address)
	}
	return w.Put(l.elementKey(i), l.serializer.ToBytes(value))
}

// Push appends the element, extending the length by one.
func (l *List[T]) Push(value T) error {
	w, err := l.writer()
	if err != nil {
		return err
	}
	length, err := l.Len()
	if err != nil {
		return err
	}
	if err := w.Put(l.elementKey(length), l.serializer.ToBytes(value)); err != nil {
		return err
	}
	return l.setLen(w, length+1)
}

// Truncate removes the elements at positions n and above. A length
// beyond the current one reports an ErrArgument failure.
func (l *List[T]) Truncate(n uint64) error {
	w, err := l.writer()
	if err != nil {
		return err
	}
	length, err := l.Len()
	if err != nil {
		return err
	}
	if n > length {
		return fmt.Errorf("%w: cannot truncate list %s of length %d to %d",
			common.ErrArgument, l.address, length, n)
	}
	for i := n; i < length; i++ {
		if err := w.Delete(l.elementKey(i)); err != nil {
			return err
		}
	}
	return l.setLen(w, n)
}

// Clear removes all elements of the list.
func (l *List[T]) Clear() error {
	w, err := l.writer()
	if err != nil {
		return err
	}
	return w.ClearPrefix(l.prefix)
}

// Iterator returns a lazy, restartable iterator over the elements in
// position order.
func (l *List[T]) Iterator() common.Iterator[T] {
	return &listIterator[T]{list: l}
}

func (l *List[T]) setLen(w storage.Writer, length uint64) error {
	if length == 0 {
		return w.Delete(l.metaKey())
	}
	return w.Put(l.metaKey(), (common.Uint64Serializer{}).ToBytes(length))
}

func (l *List[T]) elementKey(i uint64) []byte {
	return l.dataKey((common.Uint64Serializer{}).ToBytes(i))
}

type listIterator[T any] struct {
	list  *List[T]
	next  uint64
	value T
	err   error
	done  bool
}

func (it *listIterator[T]) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	length, err := it.list.Len()
	if err != nil {
		it.err = err
		return false
	}
	if it.next >= length {
		it.done = true
		return false
	}
	it.value, it.err = it.list.Get(it.next)
	if it.err != nil {
		return false
	}
	it.next++
	return true
}

func (it *listIterator[T]) Value() T {
	return it.value
}

func (it *listIterator[T]) Error() error {
	return it.err
}

func (it *listIterator[T]) Release() {
	it.done = true
}
