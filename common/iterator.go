package common

import "fmt"

// Iterator is a lazy stream of values read from the database.
//
// The usage pattern follows the level-db iterators:
//
//	it := index.Iterator()
//	defer it.Release()
//	for it.Next() {
//	    use(it.Value())
//	}
//	if err := it.Error(); err != nil { ... }
type Iterator[T any] interface {

	// Next moves the iterator to the next element. It returns false when
	// the iterator is exhausted or has failed.
	Next() bool

	// Value returns the element the iterator currently points to. It must
	// only be called after Next returned true.
	Value() T

	// Error returns the first failure encountered while iterating, if any.
	Error() error

	// Release frees resources associated with the iterator. It is safe to
	// call Release more than once.
	Release()
}

// MapEntry wraps a map key-value pair.
type MapEntry[K any, V any] struct {
	Key K
	Val V
}

func (e MapEntry[K, V]) String() string {
	return fmt.Sprintf("Entry: %v -> %v", e.Key, e.Val)
}
