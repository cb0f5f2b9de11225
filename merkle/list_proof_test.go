package merkle

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/merkledger/merkledger/common"
)

func buildList(count int) ([]common.Hash, [][]byte) {
	elements := make([][]byte, count)
	leaves := make([]common.Hash, count)
	for i := range elements {
		elements[i] = []byte(fmt.Sprintf("element-%d", i))
		leaves[i] = LeafHash(elements[i])
	}
	return leaves, elements
}

func TestListProof_PresenceVerifies(t *testing.T) {
	for _, count := range []int{1, 2, 3, 4, 5, 7, 8, 9} {
		leaves, elements := buildList(count)
		root := ListRootHash(leaves)
		for i := 0; i < count; i++ {
			proof := BuildListProof(leaves, uint64(i), elements[i])
			element, present, err := proof.Verify(root)
			if err != nil {
				t.Fatalf("list of %d: proof of position %d failed: %v", count, i, err)
			}
			if !present {
				t.Fatalf("list of %d: position %d reported absent", count, i)
			}
			if !bytes.Equal(element, elements[i]) {
				t.Errorf("list of %d: position %d witnessed wrong element %q", count, i, element)
			}
		}
	}
}

func TestListProof_AbsenceVerifies(t *testing.T) {
	for _, count := range []int{0, 1, 5} {
		leaves, _ := buildList(count)
		root := ListRootHash(leaves)
		for _, index := range []uint64{uint64(count), uint64(count) + 7} {
			proof := BuildListProof(leaves, index, nil)
			_, present, err := proof.Verify(root)
			if err != nil {
				t.Fatalf("list of %d: absence proof of position %d failed: %v", count, index, err)
			}
			if present {
				t.Errorf("list of %d: position %d reported present", count, index)
			}
		}
	}
}

func TestListProof_RejectsTamperedElement(t *testing.T) {
	leaves, elements := buildList(5)
	root := ListRootHash(leaves)
	proof := BuildListProof(leaves, 2, elements[2])
	proof.Element = []byte("tampered")
	if _, _, err := proof.Verify(root); err == nil {
		t.Errorf("tampered element passed verification")
	}
}

func TestListProof_RejectsWrongRoot(t *testing.T) {
	leaves, elements := buildList(4)
	proof := BuildListProof(leaves, 1, elements[1])
	otherLeaves, _ := buildList(6)
	if _, _, err := proof.Verify(ListRootHash(otherLeaves)); err == nil {
		t.Errorf("proof verified against a foreign root")
	}
}

func TestListProof_RejectsShiftedIndex(t *testing.T) {
	leaves, elements := buildList(4)
	root := ListRootHash(leaves)
	proof := BuildListProof(leaves, 1, elements[1])
	proof.Index = 2
	if _, _, err := proof.Verify(root); err == nil {
		t.Errorf("proof with a shifted index passed verification")
	}
}

func TestListProof_RejectsForgedAbsence(t *testing.T) {
	leaves, _ := buildList(3)
	root := ListRootHash(leaves)

	// claiming absence of an occupied position must fail
	forged := &ListProof{Length: 3, Index: 1, TreeRoot: ListTreeHash(leaves)}
	if _, _, err := forged.Verify(root); err == nil {
		t.Errorf("absence of an occupied position passed verification")
	}

	// claiming a shorter list must fail against the true root
	shorter := &ListProof{Length: 2, Index: 2, TreeRoot: ListTreeHash(leaves[:2])}
	if _, _, err := shorter.Verify(root); err == nil {
		t.Errorf("absence against a shortened length passed verification")
	}
}

func TestListProof_RejectsSiblingCountMismatch(t *testing.T) {
	leaves, elements := buildList(8)
	root := ListRootHash(leaves)

	missing := BuildListProof(leaves, 3, elements[3])
	missing.Siblings = missing.Siblings[:len(missing.Siblings)-1]
	if _, _, err := missing.Verify(root); err == nil {
		t.Errorf("proof with a missing sibling passed verification")
	}

	excess := BuildListProof(leaves, 3, elements[3])
	excess.Siblings = append(excess.Siblings, common.Hash{})
	if _, _, err := excess.Verify(root); err == nil {
		t.Errorf("proof with an excess sibling passed verification")
	}
}
