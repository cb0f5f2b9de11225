package index

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/merkle"
	"github.com/merkledger/merkledger/storage"
)

// leafCacheSize bounds the content-keyed caches of computed element
// hashes held by the proof index variants.
const leafCacheSize = 1 << 12

// ProofList is a list additionally maintaining a merkle tree over its
// positions, providing a root hash summarizing the contents and
// compact proofs of presence or absence of a position, verifiable
// against that root hash without access to the list.
type ProofList[T any] struct {
	List[T]
	leafHashes *lru.Cache[string, common.Hash]
}

// NewProofList creates a proof list index at the given address over
// the view.
func NewProofList[T any](address Address, view storage.View, serializer common.Serializer[T]) *ProofList[T] {
	cache, _ := lru.New[string, common.Hash](leafCacheSize)
	return &ProofList[T]{
		List:       *NewList(address, view, serializer),
		leafHashes: cache,
	}
}

// RootHash returns the digest summarizing the current contents. It is
// deterministic given the element sequence and changes exactly when
// the logical contents change.
func (l *ProofList[T]) RootHash() (common.Hash, error) {
	leaves, _, err := l.leaves(0)
	if err != nil {
		return common.Hash{}, err
	}
	return merkle.ListRootHash(leaves), nil
}

// GetProof produces a proof of the presence of the element at the
// given position, or of the position's absence when it lies beyond the
// end of the list.
func (l *ProofList[T]) GetProof(i uint64) (*merkle.ListProof, error) {
	leaves, element, err := l.leaves(i)
	if err != nil {
		return nil, err
	}
	return merkle.BuildListProof(leaves, i, element), nil
}

// leaves collects the leaf hashes of all elements in position order,
// along with the serialized element at the picked position, if present.
func (l *ProofList[T]) leaves(pick uint64) ([]common.Hash, []byte, error) {
	length, err := l.Len()
	if err != nil {
		return nil, nil, err
	}
	leaves := make([]common.Hash, 0, length)
	var element []byte
	it := l.view.Iterate(l.dataPrefix())
	defer it.Release()
	for it.Next() {
		raw := it.Value()
		if uint64(len(leaves)) == pick {
			element = raw
		}
		leaves = append(leaves, l.leafHash(raw))
	}
	if err := it.Error(); err != nil {
		return nil, nil, err
	}
	if uint64(len(leaves)) != length {
		return nil, nil, fmt.Errorf("%w: list %s has %d stored elements but length %d",
			common.ErrFormat, l.address, len(leaves), length)
	}
	return leaves, element, nil
}

func (l *ProofList[T]) leafHash(raw []byte) common.Hash {
	if hash, ok := l.leafHashes.Get(string(raw)); ok {
		return hash
	}
	hash := merkle.LeafHash(raw)
	l.leafHashes.Add(string(raw), hash)
	return hash
}
