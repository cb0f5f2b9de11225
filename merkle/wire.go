package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/merkledger/merkledger/common"
)

// Proof structures are independently serializable so that verifiers
// without database access can receive them over the wire. RLP is used
// as the canonical proof encoding.

// ToBytes serializes the proof.
func (p *ListProof) ToBytes() []byte {
	data, err := rlp.EncodeToBytes(p)
	if err != nil {
		// all ListProof fields are RLP-encodable
		panic(fmt.Sprintf("list proof encoding failed: %v", err))
	}
	return data
}

// ListProofFromBytes deserializes a proof, reporting an ErrFormat
// failure on corrupt input.
func ListProofFromBytes(data []byte) (*ListProof, error) {
	proof := new(ListProof)
	if err := rlp.DecodeBytes(data, proof); err != nil {
		return nil, fmt.Errorf("%w: invalid list proof: %v", common.ErrFormat, err)
	}
	return proof, nil
}

// ToBytes serializes the proof.
func (p *MapProof) ToBytes() []byte {
	data, err := rlp.EncodeToBytes(p)
	if err != nil {
		// all MapProof fields are RLP-encodable
		panic(fmt.Sprintf("map proof encoding failed: %v", err))
	}
	return data
}

// MapProofFromBytes deserializes a proof, reporting an ErrFormat
// failure on corrupt input.
func MapProofFromBytes(data []byte) (*MapProof, error) {
	proof := new(MapProof)
	if err := rlp.DecodeBytes(data, proof); err != nil {
		return nil, fmt.Errorf("%w: invalid map proof: %v", common.ErrFormat, err)
	}
	return proof, nil
}
