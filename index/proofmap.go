package index

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/merkle"
	"github.com/merkledger/merkledger/storage"
)

// ProofMap is a map additionally maintaining a sparse merkle tree over
// its hashed keys, providing a root hash summarizing the contents and
// compact proofs of presence or absence of a key, verifiable against
// that root hash without access to the map.
type ProofMap[K any, V any] struct {
	Map[K, V]
	valueHashes *lru.Cache[string, common.Hash]
}

// NewProofMap creates a proof map index at the given address over the
// view.
func NewProofMap[K any, V any](address Address, view storage.View,
	keySerializer common.Serializer[K], valueSerializer common.Serializer[V]) *ProofMap[K, V] {
	cache, _ := lru.New[string, common.Hash](leafCacheSize)
	return &ProofMap[K, V]{
		Map:         *NewMap(address, view, keySerializer, valueSerializer),
		valueHashes: cache,
	}
}

// RootHash returns the digest summarizing the current contents. It is
// deterministic given the entries, regardless of their insertion
// order, and changes exactly when the logical contents change.
func (m *ProofMap[K, V]) RootHash() (common.Hash, error) {
	leaves, err := m.leaves()
	if err != nil {
		return common.Hash{}, err
	}
	return merkle.MapRootHash(leaves), nil
}

// GetProof produces a proof of the presence of the key with its value,
// or of the key's absence.
func (m *ProofMap[K, V]) GetProof(key K) (*merkle.MapProof, error) {
	leaves, err := m.leaves()
	if err != nil {
		return nil, err
	}
	keyHash := common.Sha256(m.keySerializer.ToBytes(key))
	value, _, err := m.view.Get(m.keyOf(key))
	if err != nil {
		return nil, err
	}
	return merkle.BuildMapProof(leaves, keyHash, value), nil
}

// leaves collects the tree leaves of all entries, sorted by hashed key.
func (m *ProofMap[K, V]) leaves() ([]merkle.MapLeaf, error) {
	leaves := make([]merkle.MapLeaf, 0)
	strip := len(m.dataPrefix())
	it := m.view.Iterate(m.dataPrefix())
	defer it.Release()
	for it.Next() {
		leaves = append(leaves, merkle.MapLeaf{
			KeyHash:   common.Sha256(it.Key()[strip:]),
			ValueHash: m.valueHash(it.Value()),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].KeyHash.Compare(leaves[j].KeyHash) < 0
	})
	return leaves, nil
}

func (m *ProofMap[K, V]) valueHash(raw []byte) common.Hash {
	if hash, ok := m.valueHashes.Get(string(raw)); ok {
		return hash
	}
	hash := common.Sha256(raw)
	m.valueHashes.Add(string(raw), hash)
	return hash
}
