// Package memory provides an in-memory storage.Database, used in tests
// and as the reference implementation of the substrate contract.
package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
	"golang.org/x/exp/slices"
)

// Database keeps the whole key-value space in a map. Snapshots copy the
// map, so they are cheap only for test-sized data sets.
type Database struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewDatabase creates an empty in-memory database.
func NewDatabase() *Database {
	return &Database{
		data: make(map[string][]byte),
	}
}

func (db *Database) Snapshot() (storage.Snapshot, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, fmt.Errorf("%w: database is closed", common.ErrResource)
	}
	data := make(map[string][]byte, len(db.data))
	for key, value := range db.data {
		data[key] = value
	}
	return &snapshot{data: data}, nil
}

func (db *Database) Fork() (*storage.Fork, error) {
	snap, err := db.Snapshot()
	if err != nil {
		return nil, err
	}
	return storage.NewFork(snap), nil
}

func (db *Database) Merge(fork *storage.Fork) error {
	changes, err := fork.Finish()
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return fmt.Errorf("%w: database is closed", common.ErrResource)
	}
	for key, value := range changes {
		if value == nil {
			delete(db.data, key)
		} else {
			db.data[key] = value
		}
	}
	return nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.data = nil
	return nil
}

type snapshot struct {
	data map[string][]byte
}

func (s *snapshot) Get(key []byte) ([]byte, bool, error) {
	value, found := s.data[string(key)]
	return value, found, nil
}

func (s *snapshot) Iterate(prefix []byte) storage.Iterator {
	keys := make([]string, 0)
	for key := range s.data {
		if strings.HasPrefix(key, string(prefix)) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return &iterator{data: s.data, keys: keys, pos: -1}
}

func (s *snapshot) Release() {}

type iterator struct {
	data map[string][]byte
	keys []string
	pos  int
}

func (it *iterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *iterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *iterator) Value() []byte {
	return it.data[it.keys[it.pos]]
}

func (it *iterator) Error() error { return nil }
func (it *iterator) Release()     {}
