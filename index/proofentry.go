package index

import (
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/merkle"
	"github.com/merkledger/merkledger/storage"
)

// ProofEntry is an entry whose value participates in state
// commitments: its root hash is the leaf hash of the serialized value,
// or the zero hash when the entry is unset.
type ProofEntry[T any] struct {
	Entry[T]
}

// NewProofEntry creates a proof entry index at the given address over
// the view.
func NewProofEntry[T any](address Address, view storage.View, serializer common.Serializer[T]) *ProofEntry[T] {
	return &ProofEntry[T]{
		Entry: *NewEntry(address, view, serializer),
	}
}

// RootHash returns the digest of the stored value, or the zero hash
// when the entry is unset.
func (e *ProofEntry[T]) RootHash() (common.Hash, error) {
	raw, found, err := e.view.Get(e.metaKey())
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return common.Hash{}, nil
	}
	return merkle.LeafHash(raw), nil
}
