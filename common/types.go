package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HashLength is the number of bytes in a Hash.
const HashLength = 32

// Hash is a cryptographic digest of stored data.
type Hash [HashLength]byte

// HashFromBytes converts the input slice into a Hash.
// The slice must be exactly HashLength bytes long.
func HashFromBytes(data []byte) (Hash, error) {
	var h Hash
	if len(data) != HashLength {
		return h, fmt.Errorf("%w: hash must be %d bytes, got %d", ErrFormat, HashLength, len(data))
	}
	copy(h[:], data)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Compare compares two hashes lexicographically.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// PublicKeyLength is the number of bytes in a PublicKey.
const PublicKeyLength = 32

// PublicKey identifies the author of a transaction message.
type PublicKey [PublicKeyLength]byte

func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// SignatureLength is the number of bytes in a transaction message signature.
const SignatureLength = 64

// Signature authenticates a transaction message.
type Signature [SignatureLength]byte
