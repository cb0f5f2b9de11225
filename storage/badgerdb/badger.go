// Package badgerdb provides a badger backed storage.Database, an
// alternative durable backend to the level-db one.
package badgerdb

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Database wraps a badger instance. Snapshots map to read-only badger
// transactions; fork merges are flushed through a write batch.
type Database struct {
	db *badger.DB
}

// OpenDatabase opens (or creates) a badger database in the given
// directory.
func OpenDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open badger %s: %v", common.ErrResource, path, err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Snapshot() (storage.Snapshot, error) {
	return &snapshot{txn: d.db.NewTransaction(false)}, nil
}

func (d *Database) Fork() (*storage.Fork, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	return storage.NewFork(snap), nil
}

func (d *Database) Merge(fork *storage.Fork) error {
	changes, err := fork.Finish()
	if err != nil {
		return err
	}
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for key, value := range changes {
		if value == nil {
			err = wb.Delete([]byte(key))
		} else {
			err = wb.Set([]byte(key), value)
		}
		if err != nil {
			return fmt.Errorf("%w: cannot stage badger write: %v", common.ErrResource, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: cannot flush badger batch: %v", common.ErrResource, err)
	}
	return nil
}

func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("%w: cannot close badger: %v", common.ErrResource, err)
	}
	return nil
}

type snapshot struct {
	txn *badger.Txn
}

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	item, err := s.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: badger read failed: %v", common.ErrResource, err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: badger value read failed: %v", common.ErrResource, err)
	}
	return value, true, nil
}

func (s *snapshot) Iterate(prefix []byte) storage.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = append([]byte(nil), prefix...)
	return &badgerIterator{it: s.txn.NewIterator(opts), first: true}
}

func (s *snapshot) Release() {
	s.txn.Discard()
}

type badgerIterator struct {
	it    *badger.Iterator
	first bool
	value []byte
	err   error
}

func (it *badgerIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.first {
		it.first = false
		it.it.Rewind()
	} else {
		it.it.Next()
	}
	if !it.it.Valid() {
		return false
	}
	it.value, it.err = it.it.Item().ValueCopy(nil)
	return it.err == nil
}

func (it *badgerIterator) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *badgerIterator) Value() []byte {
	return it.value
}

func (it *badgerIterator) Error() error {
	if it.err != nil {
		return fmt.Errorf("%w: badger iteration failed: %v", common.ErrResource, it.err)
	}
	return nil
}

func (it *badgerIterator) Release() {
	it.it.Close()
}
