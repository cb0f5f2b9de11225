package blockchain

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Blockchain is a read-only facade over the core indices, answering
// the common chain queries against one consistent view.
type Blockchain struct {
	schema *Schema
}

// NewBlockchain creates the facade over the given view.
func NewBlockchain(view storage.View) *Blockchain {
	return &Blockchain{schema: NewSchema(view)}
}

// Height returns the height of the latest committed block. It is an
// error to call it on an empty chain.
func (b *Blockchain) Height() (uint64, error) {
	return b.schema.Height()
}

// LastBlock returns the header of the latest committed block.
func (b *Blockchain) LastBlock() (Block, error) {
	height, err := b.schema.Height()
	if err != nil {
		return Block{}, err
	}
	return b.BlockByHeight(height)
}

// BlockByHeight returns the header of the block at the given height.
func (b *Blockchain) BlockByHeight(height uint64) (Block, error) {
	hash, err := b.schema.BlockHashes().Get(height)
	if err != nil {
		return Block{}, err
	}
	block, found, err := b.schema.Blocks().Get(hash)
	if err != nil {
		return Block{}, err
	}
	if !found {
		return Block{}, fmt.Errorf("%w: no header for block %v at height %d", common.ErrFormat, hash, height)
	}
	return block, nil
}

// BlockByHash returns the header of the block with the given hash. A
// missing block is reported through the found flag.
func (b *Blockchain) BlockByHash(hash common.Hash) (Block, bool, error) {
	return b.schema.Blocks().Get(hash)
}

// ContainsBlock reports whether a block with the given hash has been
// committed.
func (b *Blockchain) ContainsBlock(hash common.Hash) (bool, error) {
	return b.schema.Blocks().ContainsKey(hash)
}

// Transaction returns the signed message with the given hash, whether
// committed or pooled. A missing transaction is reported through the
// found flag.
func (b *Blockchain) Transaction(hash common.Hash) (TransactionMessage, bool, error) {
	return b.schema.Transactions().Get(hash)
}

// TransactionLocation returns the chain position of a committed
// transaction. A transaction that is unknown or still in the pool is
// reported through the found flag.
func (b *Blockchain) TransactionLocation(hash common.Hash) (TransactionLocation, bool, error) {
	return b.schema.TransactionLocations().Get(hash)
}

// InPool reports whether the transaction with the given hash waits in
// the pool.
func (b *Blockchain) InPool(hash common.Hash) (bool, error) {
	return b.schema.TransactionPool().Contains(hash)
}

// BlockTransactionHashes returns the hashes of the transactions of the
// block at the given height, in execution order.
func (b *Blockchain) BlockTransactionHashes(height uint64) ([]common.Hash, error) {
	list, err := b.schema.BlockTransactions(height)
	if err != nil {
		return nil, err
	}
	length, err := list.Len()
	if err != nil {
		return nil, err
	}
	hashes := make([]common.Hash, 0, length)
	it := list.Iterator()
	defer it.Release()
	for it.Next() {
		hashes = append(hashes, it.Value())
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return hashes, nil
}

// CallError returns the execution error of the given call in the block
// at the given height. A successful call is reported through the found
// flag.
func (b *Blockchain) CallError(height uint64, call CallInBlock) (ExecutionError, bool, error) {
	errors, err := b.schema.CallErrors(height)
	if err != nil {
		return ExecutionError{}, false, err
	}
	return errors.Get(call)
}

// ConsensusConfig returns the current consensus configuration.
func (b *Blockchain) ConsensusConfig() (Config, error) {
	return b.schema.ConsensusConfig()
}
