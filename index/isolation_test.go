package index

import (
	"fmt"
	"testing"

	"github.com/merkledger/merkledger/common"
)

// collect drains an iterator of strings.
func collect(t *testing.T, it common.Iterator[string]) []string {
	t.Helper()
	defer it.Release()
	elements := []string{}
	for it.Next() {
		elements = append(elements, it.Value())
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	return elements
}

func TestGroup_MembersAreFullyIsolated(t *testing.T) {
	fork := testFork(t)
	member := func(groupID string) *KeySet[string] {
		return NewKeySet(groupAddressOf(t, "group.sets", []byte(groupID)), fork, common.StringSerializer{})
	}

	contents := map[string][]string{
		"1": {"V1", "V2", "V3"},
		"2": {"V4", "V5", "V6"},
		"3": {"V1", "V2"},
		"4": {"V10"},
		"5": {},
	}
	for groupID, elements := range contents {
		set := member(groupID)
		for _, element := range elements {
			if err := set.Add(element); err != nil {
				t.Fatalf("failed to add to group %s: %v", groupID, err)
			}
		}
	}

	for groupID, want := range contents {
		got := collect(t, member(groupID).Iterator())
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("group %s: got %v, want %v", groupID, got, want)
		}
	}
}

func TestGroup_ClearingOneMemberKeepsTheOthers(t *testing.T) {
	fork := testFork(t)
	member := func(groupID byte) *Map[string, string] {
		return NewMap(groupAddressOf(t, "group.maps", []byte{groupID}), fork,
			common.StringSerializer{}, common.StringSerializer{})
	}
	for _, groupID := range []byte{1, 2} {
		if err := member(groupID).Put("k", "v"); err != nil {
			t.Fatalf("failed to put: %v", err)
		}
	}
	if err := member(1).Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if found, _ := member(1).ContainsKey("k"); found {
		t.Errorf("cleared member still holds its entry")
	}
	if found, _ := member(2).ContainsKey("k"); !found {
		t.Errorf("clearing one member disturbed another")
	}
}

func TestGroup_AdversarialGroupIDsDoNotCollide(t *testing.T) {
	fork := testFork(t)
	newList := func(address Address) *List[string] {
		return NewList(address, fork, common.StringSerializer{})
	}

	// a grouped member and a plain index sharing name bytes, plus group
	// ids that are prefixes of each other
	indices := []*List[string]{
		newList(addressOf(t, "fam")),
		newList(groupAddressOf(t, "fam", []byte("a"))),
		newList(groupAddressOf(t, "fam", []byte("ab"))),
		newList(groupAddressOf(t, "fa", []byte("m"))),
	}
	for i, list := range indices {
		for j := 0; j <= i; j++ {
			if err := list.Push(fmt.Sprintf("payload-%d", i)); err != nil {
				t.Fatalf("failed to push: %v", err)
			}
		}
	}
	for i, list := range indices {
		length, err := list.Len()
		if err != nil {
			t.Fatalf("failed to measure index %d: %v", i, err)
		}
		if length != uint64(i+1) {
			t.Errorf("index %d: got length %d, want %d", i, length, i+1)
		}
	}
}

func TestGroup_VisibleThroughMergedSnapshot(t *testing.T) {
	db := testDatabase(t)
	fork, err := db.Fork()
	if err != nil {
		t.Fatalf("failed to fork: %v", err)
	}
	set := NewKeySet(groupAddressOf(t, "group.sets", []byte{7}), fork, common.StringSerializer{})
	if err := set.Add("persisted"); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if err := db.Merge(fork); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	snapshot, err := db.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()
	reopened := NewKeySet(groupAddressOf(t, "group.sets", []byte{7}), snapshot, common.StringSerializer{})
	if found, err := reopened.Contains("persisted"); err != nil || !found {
		t.Errorf("merged group member not visible: found %t, err %v", found, err)
	}
}
