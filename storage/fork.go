package storage

import (
	"bytes"
	"fmt"

	"github.com/merkledger/merkledger/common"
	"golang.org/x/exp/slices"
)

// Fork is a mutable, uncommitted changeset layered over a snapshot of
// the latest committed state. Reads reflect the fork's own pending
// writes (read-your-writes). A fork is consumed exactly once, either by
// Database.Merge or by Release; afterwards every operation reports an
// ErrState failure.
//
// A fork is not safe for concurrent use; the execution engine mutates
// at most one fork at a time.
type Fork struct {
	base Snapshot
	// pending changes; a nil value is a deletion marker
	changes  map[string][]byte
	consumed bool
}

// NewFork creates a fork over the given base snapshot. The fork takes
// ownership of the snapshot and releases it when consumed.
func NewFork(base Snapshot) *Fork {
	return &Fork{
		base:    base,
		changes: make(map[string][]byte),
	}
}

func (f *Fork) Get(key []byte) ([]byte, bool, error) {
	if f.consumed {
		return nil, false, errForkConsumed()
	}
	if value, ok := f.changes[string(key)]; ok {
		if value == nil {
			return nil, false, nil
		}
		return value, true, nil
	}
	return f.base.Get(key)
}

func (f *Fork) Iterate(prefix []byte) Iterator {
	if f.consumed {
		return &errorIterator{err: errForkConsumed()}
	}
	overlay := make([]string, 0)
	for key := range f.changes {
		if bytes.HasPrefix([]byte(key), prefix) {
			overlay = append(overlay, key)
		}
	}
	slices.Sort(overlay)
	return &mergedIterator{
		base:    f.base.Iterate(prefix),
		changes: f.changes,
		overlay: overlay,
	}
}

func (f *Fork) Put(key, value []byte) error {
	if f.consumed {
		return errForkConsumed()
	}
	if value == nil {
		value = []byte{}
	}
	f.changes[string(key)] = value
	return nil
}

func (f *Fork) Delete(key []byte) error {
	if f.consumed {
		return errForkConsumed()
	}
	f.changes[string(key)] = nil
	return nil
}

// ClearPrefix removes every key starting with the prefix, both pending
// and committed ones. Committed keys are masked by deletion markers.
func (f *Fork) ClearPrefix(prefix []byte) error {
	if f.consumed {
		return errForkConsumed()
	}
	for key := range f.changes {
		if bytes.HasPrefix([]byte(key), prefix) {
			delete(f.changes, key)
		}
	}
	it := f.base.Iterate(prefix)
	defer it.Release()
	for it.Next() {
		f.changes[string(it.Key())] = nil
	}
	return it.Error()
}

// Finish consumes the fork and hands its pending changeset to the
// caller for atomic application. A nil value marks a deletion. Only
// database implementations merging the fork are expected to call it.
func (f *Fork) Finish() (map[string][]byte, error) {
	if f.consumed {
		return nil, errForkConsumed()
	}
	f.consumed = true
	f.base.Release()
	changes := f.changes
	f.changes = nil
	return changes, nil
}

// Release discards the pending changeset in full and consumes the fork.
// It implements the atomic rollback of a failed transaction and is safe
// to call on an already consumed fork.
func (f *Fork) Release() {
	if f.consumed {
		return
	}
	f.consumed = true
	f.base.Release()
	f.changes = nil
}

// Apply folds a changeset produced by Finish into the fork. A nil
// value removes the key.
func (f *Fork) Apply(changes map[string][]byte) error {
	if f.consumed {
		return errForkConsumed()
	}
	for key, value := range changes {
		f.changes[key] = value
	}
	return nil
}

// NestedFork layers a fresh changeset over a parent fork without taking
// ownership of it: finishing or releasing the nested fork leaves the
// parent usable. It gives callers a savepoint to roll one unit of work
// back to.
func NestedFork(parent *Fork) *Fork {
	return NewFork(retained{parent})
}

// retained adapts a view into a snapshot whose release is a no-op, so
// the underlying fork outlives nested forks built on top of it.
type retained struct {
	View
}

func (retained) Release() {}

func errForkConsumed() error {
	return fmt.Errorf("%w: fork already merged or released", common.ErrState)
}

// mergedIterator walks the base iterator and the sorted overlay slice
// in lockstep, letting pending changes shadow committed entries and
// skipping deletion markers.
type mergedIterator struct {
	base       Iterator
	changes    map[string][]byte
	overlay    []string
	overlayPos int

	key      []byte
	value    []byte
	baseDone bool
	baseKey  []byte
	released bool
}

func (it *mergedIterator) Next() bool {
	if it.released {
		return false
	}
	for {
		if it.baseKey == nil && !it.baseDone {
			if it.base.Next() {
				it.baseKey = it.base.Key()
			} else {
				it.baseDone = true
			}
		}
		var overlayKey string
		hasOverlay := it.overlayPos < len(it.overlay)
		if hasOverlay {
			overlayKey = it.overlay[it.overlayPos]
		}

		switch {
		case it.baseDone && !hasOverlay:
			return false
		case it.baseDone || (hasOverlay && overlayKey <= string(it.baseKey)):
			value := it.changes[overlayKey]
			it.overlayPos++
			if !it.baseDone && overlayKey == string(it.baseKey) {
				it.baseKey = nil // shadowed
			}
			if value == nil {
				continue // deletion marker
			}
			it.key = []byte(overlayKey)
			it.value = value
			return true
		default:
			it.key = it.baseKey
			it.value = it.base.Value()
			it.baseKey = nil
			return true
		}
	}
}

func (it *mergedIterator) Key() []byte {
	return it.key
}

func (it *mergedIterator) Value() []byte {
	return it.value
}

func (it *mergedIterator) Error() error {
	return it.base.Error()
}

func (it *mergedIterator) Release() {
	if !it.released {
		it.released = true
		it.base.Release()
	}
}

// errorIterator yields nothing but an error.
type errorIterator struct {
	err error
}

func (it *errorIterator) Next() bool    { return false }
func (it *errorIterator) Key() []byte   { return nil }
func (it *errorIterator) Value() []byte { return nil }
func (it *errorIterator) Error() error  { return it.err }
func (it *errorIterator) Release()      {}
