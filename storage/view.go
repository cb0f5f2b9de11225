// Package storage defines the transactional substrate the index and
// schema layers are built on: a database exposing immutable Snapshots
// and mutable Forks over a flat, byte-ordered key-value space.
package storage

//go:generate mockgen -source view.go -destination view_mock.go -package storage

// View is a read-only window into the key-value space at some point in
// time. It is implemented by both Snapshot and Fork.
type View interface {

	// Get returns the value stored under the key, and whether the key
	// is present. A missing key is not an error.
	Get(key []byte) (value []byte, found bool, err error)

	// Iterate returns an iterator over all key-value pairs whose key
	// starts with the given prefix, ordered by key bytes ascending.
	Iterate(prefix []byte) Iterator
}

// Writer is the mutation surface of a view. All writes are applied to a
// pending changeset and become durable only when the enclosing fork is
// merged.
type Writer interface {

	// Put stores the value under the key, overwriting any previous value.
	Put(key, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// ClearPrefix removes every key starting with the given prefix.
	ClearPrefix(prefix []byte) error
}

// Iterator walks raw key-value pairs in ascending key order. It follows
// the level-db iterator discipline: call Next before the first access,
// check Error after the loop, and always Release.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Snapshot is an immutable point-in-time read view. Many snapshots may
// be read concurrently; a snapshot never observes partial fork state.
// It must be released on all exit paths to free database resources.
type Snapshot interface {
	View

	// Release frees the resources held by the snapshot. The snapshot and
	// any index built over it must not be used afterwards.
	Release()
}

// Database is the durable store. The surrounding execution engine
// guarantees the single-writer discipline: at most one fork is mutated
// at a time per database, and a fork handed to Merge is not touched
// afterwards.
type Database interface {

	// Snapshot returns a read view of the latest committed state.
	Snapshot() (Snapshot, error)

	// Fork returns a mutable changeset layered over the latest committed
	// state.
	Fork() (*Fork, error)

	// Merge atomically applies the pending changes of the fork and
	// consumes it. A merged fork is invalid; any further use of it
	// reports an ErrState failure.
	Merge(fork *Fork) error

	// Close releases the database. All snapshots and forks must be
	// released before closing.
	Close() error
}
