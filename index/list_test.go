package index

import (
	"fmt"
	"testing"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
	"go.uber.org/mock/gomock"
)

func TestList_StartsEmpty(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.StringSerializer{})
	length, err := list.Len()
	if err != nil || length != 0 {
		t.Errorf("fresh list has length %d, err %v", length, err)
	}
	empty, err := list.IsEmpty()
	if err != nil || !empty {
		t.Errorf("fresh list not reported empty: %t, err %v", empty, err)
	}
}

func TestList_PushAndGet(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.StringSerializer{})
	for i := 0; i < 5; i++ {
		if err := list.Push(fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("failed to push: %v", err)
		}
	}
	length, err := list.Len()
	if err != nil || length != 5 {
		t.Fatalf("unexpected length %d, err %v", length, err)
	}
	for i := uint64(0); i < 5; i++ {
		value, err := list.Get(i)
		if err != nil {
			t.Fatalf("failed to get position %d: %v", i, err)
		}
		if want := fmt.Sprintf("value-%d", i); value != want {
			t.Errorf("position %d: got %q, want %q", i, value, want)
		}
	}
}

func TestList_GetOutOfBounds(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.StringSerializer{})
	if err := list.Push("only"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	for _, i := range []uint64{1, 2, 1 << 40} {
		if _, err := list.Get(i); !common.IsArgument(err) {
			t.Errorf("position %d not rejected, got %v", i, err)
		}
	}
}

func TestList_SetReplacesElement(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.StringSerializer{})
	if err := list.Push("old"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if err := list.Set(0, "new"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if value, err := list.Get(0); err != nil || value != "new" {
		t.Errorf("unexpected element %q, err %v", value, err)
	}
	if err := list.Set(1, "beyond"); !common.IsArgument(err) {
		t.Errorf("set beyond the end not rejected, got %v", err)
	}
}

func TestList_Truncate(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.StringSerializer{})
	for i := 0; i < 5; i++ {
		if err := list.Push(fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("failed to push: %v", err)
		}
	}
	if err := list.Truncate(6); !common.IsArgument(err) {
		t.Errorf("truncation beyond the length not rejected, got %v", err)
	}
	if err := list.Truncate(2); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
	if length, _ := list.Len(); length != 2 {
		t.Errorf("unexpected length after truncation: %d", length)
	}
	if _, err := list.Get(2); !common.IsArgument(err) {
		t.Errorf("truncated position still readable, got %v", err)
	}

	// truncating to zero resets to the pristine state
	if err := list.Truncate(0); err != nil {
		t.Fatalf("failed to truncate to zero: %v", err)
	}
	if empty, _ := list.IsEmpty(); !empty {
		t.Errorf("list not empty after full truncation")
	}
}

func TestList_Clear(t *testing.T) {
	fork := testFork(t)
	list := NewList(addressOf(t, "items"), fork, common.StringSerializer{})
	other := NewList(addressOf(t, "other"), fork, common.StringSerializer{})
	if err := list.Push("a"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if err := other.Push("b"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if err := list.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if length, _ := list.Len(); length != 0 {
		t.Errorf("cleared list still has length %d", length)
	}
	if length, _ := other.Len(); length != 1 {
		t.Errorf("clearing one list disturbed another (length %d)", length)
	}
}

func TestList_IteratorYieldsPositionOrder(t *testing.T) {
	list := NewList(addressOf(t, "items"), testFork(t), common.Uint64Serializer{})
	// enough elements that position 256 would sort before position 2 in
	// a little-endian or textual key layout
	for i := uint64(0); i < 300; i++ {
		if err := list.Push(i); err != nil {
			t.Fatalf("failed to push: %v", err)
		}
	}
	it := list.Iterator()
	defer it.Release()
	var expected uint64
	for it.Next() {
		if it.Value() != expected {
			t.Fatalf("position %d yields %d", expected, it.Value())
		}
		expected++
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if expected != 300 {
		t.Errorf("iterator yielded %d of 300 elements", expected)
	}
}

func TestList_RejectsWritesOnReadOnlyView(t *testing.T) {
	db := testDatabase(t)
	snapshot, err := db.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()

	list := NewList(addressOf(t, "items"), snapshot, common.StringSerializer{})
	if err := list.Push("x"); !common.IsState(err) {
		t.Errorf("push on a snapshot not rejected, got %v", err)
	}
	if err := list.Clear(); !common.IsState(err) {
		t.Errorf("clear on a snapshot not rejected, got %v", err)
	}
}

func TestList_PropagatesViewFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	view := storage.NewMockView(ctrl)
	failure := fmt.Errorf("%w: backing store failed", common.ErrResource)
	view.EXPECT().Get(gomock.Any()).Return(nil, false, failure).AnyTimes()

	list := NewList(addressOf(t, "items"), view, common.StringSerializer{})
	if _, err := list.Len(); !common.IsResource(err) {
		t.Errorf("resource failure not propagated from Len, got %v", err)
	}
	if _, err := list.Get(0); !common.IsResource(err) {
		t.Errorf("resource failure not propagated from Get, got %v", err)
	}
}

func TestList_ReportsCorruptLength(t *testing.T) {
	fork := testFork(t)
	list := NewList(addressOf(t, "items"), fork, common.StringSerializer{})
	// damage the metadata cell directly
	if err := fork.Put(list.metaKey(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("failed to corrupt metadata: %v", err)
	}
	if _, err := list.Len(); !common.IsFormat(err) {
		t.Errorf("corrupt length not reported as a format failure, got %v", err)
	}
}
