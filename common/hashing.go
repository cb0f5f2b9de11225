package common

import (
	"crypto/sha256"
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

// Sha256 computes the SHA-256 digest of the concatenation of the inputs.
// It is the default digest of the storage layer.
func Sha256(data ...[]byte) Hash {
	hasher := sha256Pool.Get().(hash.Hash)
	hasher.Reset()
	for _, d := range data {
		hasher.Write(d)
	}
	var h Hash
	hasher.Sum(h[0:0])
	sha256Pool.Put(hasher)
	return h
}

// Keccak256 computes the Keccak-256 digest of the input, for callers
// interoperating with Ethereum-style tooling.
func Keccak256(data []byte) Hash {
	hasher := keccakPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var h Hash
	hasher.Read(h[:])
	keccakPool.Put(hasher)
	return h
}

// keccakHasher is the sha3.state type returned by NewLegacyKeccak256,
// supporting Read to avoid a copy in Sum.
type keccakHasher interface {
	hash.Hash
	Read([]byte) (int, error)
}

var (
	sha256Pool = sync.Pool{New: func() any { return sha256.New() }}
	keccakPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256().(keccakHasher) }}
)
