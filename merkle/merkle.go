// Package merkle implements the hash tree structures backing the proof
// index variants: a merkle tree over list positions and a binary sparse
// merkle tree over hashed map keys. All functions are pure; the tree
// shape is fully determined by the logical contents, so equal contents
// always produce equal root hashes.
package merkle

import (
	"encoding/binary"

	"github.com/merkledger/merkledger/common"
)

// Domain separation tags of the hashing scheme. Leaves, interior nodes
// and root commitments never share a preimage space.
const (
	leafTag byte = 0x00
	nodeTag byte = 0x01
	listTag byte = 0x02
	mapTag  byte = 0x03
)

// LeafHash computes the hash of a leaf holding the serialized element.
func LeafHash(data []byte) common.Hash {
	return common.Sha256([]byte{leafTag}, data)
}

func nodeHash(left, right common.Hash) common.Hash {
	return common.Sha256([]byte{nodeTag}, left[:], right[:])
}

// singleHash folds a node with no right sibling one level up.
func singleHash(left common.Hash) common.Hash {
	return common.Sha256([]byte{nodeTag}, left[:])
}

// ListHash commits to a list: its length and the hash of the position
// tree. The length is part of the commitment, so absence of a position
// beyond the end is provable.
func ListHash(length uint64, tree common.Hash) common.Hash {
	return common.Sha256([]byte{listTag}, binary.BigEndian.AppendUint64(nil, length), tree[:])
}

// ListTreeHash computes the hash of the position tree over the given
// leaf hashes. An empty list has the zero tree hash.
func ListTreeHash(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.Hash{}
	}
	level := append([]common.Hash(nil), leaves...)
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, singleHash(level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// ListRootHash computes the full list commitment of the leaf hashes.
func ListRootHash(leaves []common.Hash) common.Hash {
	return ListHash(uint64(len(leaves)), ListTreeHash(leaves))
}

// MapHash commits to a map given the hash of its key tree.
func MapHash(tree common.Hash) common.Hash {
	return common.Sha256([]byte{mapTag}, tree[:])
}

// MapLeaf is one entry of the map tree: the hash of the serialized key
// determining the tree path, and the hash of the serialized value.
type MapLeaf struct {
	KeyHash   common.Hash
	ValueHash common.Hash
}

// MapLeafHash computes the hash of a map tree leaf.
func MapLeafHash(keyHash, valueHash common.Hash) common.Hash {
	return common.Sha256([]byte{leafTag}, keyHash[:], valueHash[:])
}

// MapTreeHash computes the hash of the binary sparse merkle tree over
// the given leaves. The leaves must be sorted by KeyHash and unique.
// An empty map has the zero tree hash.
func MapTreeHash(leaves []MapLeaf) common.Hash {
	return mapSubtreeHash(leaves, 0)
}

// MapRootHash computes the full map commitment of the sorted leaves.
func MapRootHash(leaves []MapLeaf) common.Hash {
	return MapHash(MapTreeHash(leaves))
}

func mapSubtreeHash(leaves []MapLeaf, depth int) common.Hash {
	switch len(leaves) {
	case 0:
		return common.Hash{}
	case 1:
		return MapLeafHash(leaves[0].KeyHash, leaves[0].ValueHash)
	}
	split := splitLeaves(leaves, depth)
	return nodeHash(mapSubtreeHash(leaves[:split], depth+1), mapSubtreeHash(leaves[split:], depth+1))
}

// splitLeaves finds the first leaf whose path bit at the given depth is
// set. Since the leaves are sorted by KeyHash, all zero-bit leaves
// precede it.
func splitLeaves(leaves []MapLeaf, depth int) int {
	lo, hi := 0, len(leaves)
	for lo < hi {
		mid := (lo + hi) / 2
		if bitAt(leaves[mid].KeyHash, depth) == 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// bitAt returns the bit of the hash at the given depth, in big-endian
// bit order, matching the lexicographic order of the hash bytes.
func bitAt(h common.Hash, depth int) int {
	return int(h[depth/8]>>(7-depth%8)) & 1
}

// samePathPrefix reports whether two hashes agree on their first n bits.
func samePathPrefix(a, b common.Hash, n int) bool {
	for i := 0; i < n; i++ {
		if bitAt(a, i) != bitAt(b, i) {
			return false
		}
	}
	return true
}
