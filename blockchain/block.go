package blockchain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/merkledger/merkledger/common"
)

// Block is the header of one committed block. It commits to the block
// contents through the transactions root, the error root, and the state
// hash of the whole database.
type Block struct {
	// ProposerID is the validator that proposed the block.
	ProposerID uint32
	// Height is the position of the block in the chain, starting at 0
	// for the genesis block.
	Height uint64
	// TxCount is the number of transactions in the block.
	TxCount uint32
	// PrevHash is the hash of the previous block header, zero for the
	// genesis block.
	PrevHash common.Hash
	// TxRootHash is the root of the proof list of transaction hashes in
	// this block.
	TxRootHash common.Hash
	// StateHash aggregates the roots of the merkelized indices after
	// executing the block.
	StateHash common.Hash
	// ErrorHash is the root of the proof map of call errors in this
	// block.
	ErrorHash common.Hash
}

// Hash computes the hash of the block header, used as its identifier.
func (b Block) Hash() common.Hash {
	return common.Sha256(BlockSerializer{}.ToBytes(b))
}

// BlockSerializer is a Serializer of the Block type.
type BlockSerializer struct{}

func (s BlockSerializer) ToBytes(value Block) []byte {
	data, err := rlp.EncodeToBytes(&value)
	if err != nil {
		panic(fmt.Sprintf("block encoding failed: %v", err))
	}
	return data
}
func (s BlockSerializer) FromBytes(data []byte) (Block, error) {
	var value Block
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return Block{}, fmt.Errorf("%w: invalid block: %v", common.ErrFormat, err)
	}
	return value, nil
}
func (s BlockSerializer) Size() int {
	return common.VariableSize
}
