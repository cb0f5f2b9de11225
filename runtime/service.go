// Package runtime dispatches transactions to registered services and
// drives block creation: it maintains the pool, executes services over
// a single fork per block, and commits the results atomically.
package runtime

import (
	"github.com/merkledger/merkledger/blockchain"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Service is a unit of business logic deployed into the runtime. A
// service owns the indices it creates and reaches them through the
// fork handed to each call.
type Service interface {

	// ID is the unique numeric identifier transactions are addressed by.
	ID() uint16

	// Name is the human-readable instance name, also used as the prefix
	// of the service's index names.
	Name() string

	// Initialize runs once, during genesis block creation, to set up the
	// initial service state.
	Initialize(fork *storage.Fork, config blockchain.Config) error

	// Execute applies one transaction. An ExecutionError return is
	// recorded in the block's call errors; any other error aborts block
	// creation.
	Execute(ctx *ExecutionContext, transactionID uint16, payload []byte) error
}

// ExecutionContext carries the per-transaction environment a service
// sees while executing: the fork all its reads and writes go through
// and the identity of the transaction.
type ExecutionContext struct {
	fork   *storage.Fork
	txHash common.Hash
	author common.PublicKey
}

// NewExecutionContext creates the environment for one transaction.
func NewExecutionContext(fork *storage.Fork, txHash common.Hash, author common.PublicKey) *ExecutionContext {
	return &ExecutionContext{fork: fork, txHash: txHash, author: author}
}

// Fork is the changeset the transaction operates on.
func (c *ExecutionContext) Fork() *storage.Fork {
	return c.fork
}

// TxHash is the hash of the executing transaction message.
func (c *ExecutionContext) TxHash() common.Hash {
	return c.txHash
}

// Author is the public key of the transaction author.
func (c *ExecutionContext) Author() common.PublicKey {
	return c.author
}
