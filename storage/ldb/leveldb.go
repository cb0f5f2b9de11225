// Package ldb provides a level-db backed storage.Database. It is the
// durable backend of choice for production deployments.
package ldb

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Database wraps a level-db instance. Snapshots map to level-db
// snapshots; fork merges are applied as a single write batch, so a
// merge is atomic with respect to concurrent snapshots.
type Database struct {
	db *leveldb.DB
}

// OpenDatabase opens (or creates) a level-db database in the given
// directory.
func OpenDatabase(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open leveldb %s: %v", common.ErrResource, path, err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Snapshot() (storage.Snapshot, error) {
	snap, err := d.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create leveldb snapshot: %v", common.ErrResource, err)
	}
	return &snapshot{snap: snap}, nil
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
	batch := new(leveldb.Batch)
	for key, value := range changes {
		if value == nil {
			batch.Delete([]byte(key))
		} else {
			batch.Put([]byte(key), value)
		}
	}
	if err := d.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: cannot write leveldb batch: %v", common.ErrResource, err)
	}
	return nil
}

func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("%w: cannot close leveldb: %v", common.ErrResource, err)
	}
	return nil
}

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	value, err := s.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: leveldb read failed: %v", common.ErrResource, err)
	}
	return value, true, nil
}

func (s *snapshot) Iterate(prefix []byte) storage.Iterator {
	return &ldbIterator{it: s.snap.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (s *snapshot) Release() {
	s.snap.Release()
}

// ldbIterator adapts a level-db iterator. Key and value buffers are
// copied because level-db invalidates them on the next move.
type ldbIterator struct {
	it iterator.Iterator
}

func (it *ldbIterator) Next() bool {
	return it.it.Next()
}

func (it *ldbIterator) Key() []byte {
	return append([]byte(nil), it.it.Key()...)
}

func (it *ldbIterator) Value() []byte {
	return append([]byte(nil), it.it.Value()...)
}

func (it *ldbIterator) Error() error {
	if err := it.it.Error(); err != nil {
		return fmt.Errorf("%w: leveldb iteration failed: %v", common.ErrResource, err)
	}
	return nil
}

func (it *ldbIterator) Release() {
	it.it.Release()
}
