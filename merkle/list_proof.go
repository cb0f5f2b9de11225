package merkle

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
)

// ListProof is a compact witness of the presence of an element at a
// list position, or of the absence of the position (it lies beyond the
// attested length). A verifier holding only the proof and the expected
// root hash can check it without access to the list.
type ListProof struct {
	// Length is the attested list length, bound into the root hash.
	Length uint64
	// Index is the queried position.
	Index uint64
	// Present tells whether the proof witnesses an element; false only
	// for positions at or beyond Length.
	Present bool
	// Element is the serialized element at Index, for present proofs.
	Element []byte
	// Siblings are the sibling hashes on the path from the leaf to the
	// tree root, bottom up. Levels where the node has no sibling are
	// skipped; the verifier derives them from Length.
	Siblings []common.Hash
	// TreeRoot is the hash of the position tree, for absence proofs.
	TreeRoot common.Hash
}

// BuildListProof constructs a proof for the given position from the
// leaf hashes of the complete list. For positions within the list,
// element must hold the serialized element at that position.
func BuildListProof(leaves []common.Hash, index uint64, element []byte) *ListProof {
	length := uint64(len(leaves))
	if index >= length {
		return &ListProof{
			Length:   length,
			Index:    index,
			TreeRoot: ListTreeHash(leaves),
		}
	}
	proof := &ListProof{
		Length:  length,
		Index:   index,
		Present: true,
		Element: element,
	}
	idx := index
	level := leaves
	for len(level) > 1 {
		if sibling := idx ^ 1; sibling < uint64(len(level)) {
			proof.Siblings = append(proof.Siblings, level[sibling])
		}
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, singleHash(level[i]))
			}
		}
		level = next
		idx >>= 1
	}
	return proof
}

// Verify checks the proof against the expected root hash. It returns
// the witnessed serialized element and whether the position is present.
// A proof that does not verify reports an error; verification never
// reports a false positive.
func (p *ListProof) Verify(root common.Hash) (element []byte, present bool, err error) {
	if !p.Present {
		if p.Index < p.Length {
			return nil, false, fmt.Errorf("absence proof for position %d within length %d", p.Index, p.Length)
		}
		if len(p.Siblings) != 0 {
			return nil, false, fmt.Errorf("absence proof carries %d siblings", len(p.Siblings))
		}
		if ListHash(p.Length, p.TreeRoot) != root {
			return nil, false, fmt.Errorf("proof does not match the root hash")
		}
		return nil, false, nil
	}
	if p.Index >= p.Length {
		return nil, false, fmt.Errorf("presence proof for position %d beyond length %d", p.Index, p.Length)
	}
	cur := LeafHash(p.Element)
	idx := p.Index
	levelLen := p.Length
	next := 0
	for levelLen > 1 {
		if sibling := idx ^ 1; sibling < levelLen {
			if next >= len(p.Siblings) {
				return nil, false, fmt.Errorf("proof is missing sibling hashes")
			}
			if idx&1 == 0 {
				cur = nodeHash(cur, p.Siblings[next])
			} else {
				cur = nodeHash(p.Siblings[next], cur)
			}
			next++
		} else {
			cur = singleHash(cur)
		}
		idx >>= 1
		levelLen = (levelLen + 1) / 2
	}
	if next != len(p.Siblings) {
		return nil, false, fmt.Errorf("proof carries %d excess sibling hashes", len(p.Siblings)-next)
	}
	if ListHash(p.Length, cur) != root {
		return nil, false, fmt.Errorf("proof does not match the root hash")
	}
	return p.Element, true, nil
}
