package index

import (
	"testing"

	"github.com/merkledger/merkledger/common"
)

func TestEntry_SetGetRemove(t *testing.T) {
	entry := NewEntry(addressOf(t, "config"), testFork(t), common.StringSerializer{})

	if exists, err := entry.Exists(); err != nil || exists {
		t.Errorf("fresh entry reported set: %t, err %v", exists, err)
	}
	if _, found, err := entry.Get(); err != nil || found {
		t.Errorf("fresh entry yields a value: found %t, err %v", found, err)
	}

	if err := entry.Set("first"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	value, found, err := entry.Get()
	if err != nil || !found || value != "first" {
		t.Errorf("unexpected value %q, found %t, err %v", value, found, err)
	}

	if err := entry.Set("second"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	if value, _, _ := entry.Get(); value != "second" {
		t.Errorf("overwrite not visible: %q", value)
	}

	if err := entry.Remove(); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if exists, _ := entry.Exists(); exists {
		t.Errorf("removed entry still set")
	}
	if err := entry.Remove(); err != nil {
		t.Errorf("repeated removal failed: %v", err)
	}
}

func TestEntry_IndependentOfOtherIndexes(t *testing.T) {
	fork := testFork(t)
	entry := NewEntry(addressOf(t, "config"), fork, common.StringSerializer{})
	list := NewList(addressOf(t, "config2"), fork, common.StringSerializer{})
	if err := entry.Set("v"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := list.Push("w"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if err := list.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if exists, _ := entry.Exists(); !exists {
		t.Errorf("clearing a different index unset the entry")
	}
}
