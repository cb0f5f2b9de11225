package index

import (
	"testing"

	"github.com/merkledger/merkledger/storage"
	"github.com/merkledger/merkledger/storage/memory"
)

// testDatabase creates a fresh in-memory database.
func testDatabase(t *testing.T) storage.Database {
	t.Helper()
	db := memory.NewDatabase()
	t.Cleanup(func() { db.Close() })
	return db
}

// testFork opens a fork of a fresh in-memory database.
func testFork(t *testing.T) *storage.Fork {
	t.Helper()
	fork, err := testDatabase(t).Fork()
	if err != nil {
		t.Fatalf("failed to fork: %v", err)
	}
	t.Cleanup(fork.Release)
	return fork
}

func addressOf(t *testing.T, name string) Address {
	t.Helper()
	address, err := NewAddress(name)
	if err != nil {
		t.Fatalf("failed to create address %q: %v", name, err)
	}
	return address
}

func groupAddressOf(t *testing.T, name string, groupID []byte) Address {
	t.Helper()
	address, err := NewGroupAddress(name, groupID)
	if err != nil {
		t.Fatalf("failed to create group address %q: %v", name, err)
	}
	return address
}
