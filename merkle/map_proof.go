package merkle

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
)

// MapProof is a compact witness of the presence of a key (with its
// value) in a map, or of its absence. The queried key determines a bit
// path through the sparse merkle tree; the proof carries the sibling
// hashes along that path plus the terminal the path runs into: the
// queried entry, a conflicting leaf on the same path prefix, or an
// empty subtree.
type MapProof struct {
	// KeyHash is the hashed serialized key determining the tree path.
	KeyHash common.Hash
	// Present tells whether the proof witnesses the queried entry.
	Present bool
	// Value is the serialized value, for presence proofs.
	Value []byte
	// HasConflict marks an absence proof terminating in a different
	// leaf sharing the traversed path prefix.
	HasConflict bool
	// ConflictKey and ConflictValue describe that leaf.
	ConflictKey   common.Hash
	ConflictValue common.Hash
	// Siblings are the sibling subtree hashes along the path, from the
	// root downwards; their count is the depth the path was followed to.
	Siblings []common.Hash
}

// BuildMapProof constructs a proof for the hashed key from the complete
// sorted leaf set. For present keys, value must hold the serialized
// value of the entry.
func BuildMapProof(leaves []MapLeaf, keyHash common.Hash, value []byte) *MapProof {
	proof := &MapProof{KeyHash: keyHash}
	depth := 0
	cur := leaves
	for len(cur) > 1 {
		split := splitLeaves(cur, depth)
		if bitAt(keyHash, depth) == 0 {
			proof.Siblings = append(proof.Siblings, mapSubtreeHash(cur[split:], depth+1))
			cur = cur[:split]
		} else {
			proof.Siblings = append(proof.Siblings, mapSubtreeHash(cur[:split], depth+1))
			cur = cur[split:]
		}
		depth++
	}
	if len(cur) == 0 {
		return proof
	}
	if cur[0].KeyHash == keyHash {
		proof.Present = true
		proof.Value = value
		return proof
	}
	proof.HasConflict = true
	proof.ConflictKey = cur[0].KeyHash
	proof.ConflictValue = cur[0].ValueHash
	return proof
}

// Verify checks the proof against the expected root hash. It returns
// the witnessed serialized value and whether the key is present. A
// proof that does not verify reports an error; verification never
// claims presence of an absent key or vice versa.
func (p *MapProof) Verify(root common.Hash) (value []byte, present bool, err error) {
	depth := len(p.Siblings)
	if depth > common.HashLength*8 {
		return nil, false, fmt.Errorf("proof path of %d levels exceeds the key hash length", depth)
	}
	var cur common.Hash
	switch {
	case p.Present:
		if p.HasConflict {
			return nil, false, fmt.Errorf("proof claims both presence and a conflicting leaf")
		}
		cur = MapLeafHash(p.KeyHash, common.Sha256(p.Value))
	case p.HasConflict:
		if p.ConflictKey == p.KeyHash {
			return nil, false, fmt.Errorf("conflicting leaf matches the queried key")
		}
		if !samePathPrefix(p.ConflictKey, p.KeyHash, depth) {
			return nil, false, fmt.Errorf("conflicting leaf lies on a different path")
		}
		cur = MapLeafHash(p.ConflictKey, p.ConflictValue)
	default:
		// the path terminates in an empty subtree
		cur = common.Hash{}
	}
	for d := depth - 1; d >= 0; d-- {
		if bitAt(p.KeyHash, d) == 0 {
			cur = nodeHash(cur, p.Siblings[d])
		} else {
			cur = nodeHash(p.Siblings[d], cur)
		}
	}
	if MapHash(cur) != root {
		return nil, false, fmt.Errorf("proof does not match the root hash")
	}
	if !p.Present {
		return nil, false, nil
	}
	return p.Value, true, nil
}
