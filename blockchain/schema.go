package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/index"
	"github.com/merkledger/merkledger/storage"
)

// Names of the core indices. Service indices must not use the core
// prefix, which is reserved for the schema below.
const (
	blockHashesName     = "core.block_hashes_by_height"
	blocksName          = "core.blocks"
	transactionsName    = "core.transactions"
	blockTxsName        = "core.block_transactions"
	callErrorsName      = "core.call_errors"
	txLocationsName     = "core.transactions_locations"
	txPoolName          = "core.transactions_pool"
	consensusConfigName = "core.consensus_config"
)

// Schema provides typed access to the core indices over one database
// view. Instances are cheap and stateless, so a fresh Schema is
// created wherever a view is at hand.
type Schema struct {
	view storage.View
}

// NewSchema creates a core schema over the given view. Mutating
// operations require the view to also be a writer.
func NewSchema(view storage.View) *Schema {
	return &Schema{view: view}
}

// BlockHashes is the list of block hashes indexed by block height.
func (s *Schema) BlockHashes() *index.List[common.Hash] {
	return index.NewList(mustAddress(blockHashesName), s.view, common.HashSerializer{})
}

// Blocks maps block hashes to block headers.
func (s *Schema) Blocks() *index.Map[common.Hash, Block] {
	return index.NewMap(mustAddress(blocksName), s.view, common.HashSerializer{}, BlockSerializer{})
}

// Transactions maps transaction hashes to the signed messages.
func (s *Schema) Transactions() *index.Map[common.Hash, TransactionMessage] {
	return index.NewMap(mustAddress(transactionsName), s.view,
		common.HashSerializer{}, TransactionMessageSerializer{})
}

// TransactionLocations maps hashes of committed transactions to their
// positions in the chain.
func (s *Schema) TransactionLocations() *index.Map[common.Hash, TransactionLocation] {
	return index.NewMap(mustAddress(txLocationsName), s.view,
		common.HashSerializer{}, TransactionLocationSerializer{})
}

// TransactionPool is the set of known transactions that are not yet
// committed to any block.
func (s *Schema) TransactionPool() *index.KeySet[common.Hash] {
	return index.NewKeySet(mustAddress(txPoolName), s.view, common.HashSerializer{})
}

// BlockTransactions is the proof list of transaction hashes of the
// block at the given height. The height must refer to a committed
// block.
func (s *Schema) BlockTransactions(height uint64) (*index.ProofList[common.Hash], error) {
	if err := s.CheckBlockHeight(height); err != nil {
		return nil, err
	}
	address, err := index.NewGroupAddress(blockTxsName, heightGroupID(height))
	if err != nil {
		return nil, err
	}
	return index.NewProofList(address, s.view, common.HashSerializer{}), nil
}

// CallErrors is the proof map of execution errors of the block at the
// given height. The height must refer to a committed block.
func (s *Schema) CallErrors(height uint64) (*index.ProofMap[CallInBlock, ExecutionError], error) {
	if err := s.CheckBlockHeight(height); err != nil {
		return nil, err
	}
	address, err := index.NewGroupAddress(callErrorsName, heightGroupID(height))
	if err != nil {
		return nil, err
	}
	return index.NewProofMap(address, s.view, CallInBlockSerializer{}, ExecutionErrorSerializer{}), nil
}

// ConsensusConfig returns the current consensus configuration. It is
// an error to read the configuration before the genesis block set it.
func (s *Schema) ConsensusConfig() (Config, error) {
	config, found, err := s.consensusConfigEntry().Get()
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, fmt.Errorf("%w: consensus config is not set, genesis block was not created",
			common.ErrState)
	}
	return config, nil
}

// SetConsensusConfig stores a new consensus configuration.
func (s *Schema) SetConsensusConfig(config Config) error {
	if len(config.ValidatorKeys) == 0 {
		return fmt.Errorf("%w: consensus config must list at least one validator", common.ErrArgument)
	}
	return s.consensusConfigEntry().Set(config)
}

// ConsensusConfigHash returns the root hash committing to the current
// consensus configuration, or the zero hash when it is not yet set.
func (s *Schema) ConsensusConfigHash() (common.Hash, error) {
	return s.consensusConfigEntry().RootHash()
}

func (s *Schema) consensusConfigEntry() *index.ProofEntry[Config] {
	return index.NewProofEntry(mustAddress(consensusConfigName), s.view, ConfigSerializer{})
}

// Height returns the height of the latest committed block. It is an
// error to call it on an empty chain, before the genesis block.
func (s *Schema) Height() (uint64, error) {
	length, err := s.BlockHashes().Len()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, fmt.Errorf("%w: the blockchain is empty, genesis block was not created", common.ErrState)
	}
	return length - 1, nil
}

// CheckBlockHeight verifies that a block at the given height has been
// committed.
func (s *Schema) CheckBlockHeight(height uint64) error {
	current, err := s.Height()
	if err != nil {
		return err
	}
	if height > current {
		return fmt.Errorf("%w: block height %d exceeds the current height %d",
			common.ErrArgument, height, current)
	}
	return nil
}

// AddBlock commits a new block to the core indices: it registers the
// header, appends its hash to the chain, records the transactions with
// their locations, removes them from the pool, and stores the call
// errors. The block height must extend the chain by exactly one.
func (s *Schema) AddBlock(block Block, txs []TransactionMessage, errors map[CallInBlock]ExecutionError) error {
	length, err := s.BlockHashes().Len()
	if err != nil {
		return err
	}
	if block.Height != length {
		return fmt.Errorf("%w: block height %d does not extend the chain of length %d",
			common.ErrArgument, block.Height, length)
	}
	if uint64(block.TxCount) != uint64(len(txs)) {
		return fmt.Errorf("%w: block declares %d transactions, got %d",
			common.ErrArgument, block.TxCount, len(txs))
	}

	blockHash := block.Hash()
	if err := s.Blocks().Put(blockHash, block); err != nil {
		return err
	}
	if err := s.BlockHashes().Push(blockHash); err != nil {
		return err
	}

	blockTxs, err := s.BlockTransactions(block.Height)
	if err != nil {
		return err
	}
	transactions := s.Transactions()
	locations := s.TransactionLocations()
	pool := s.TransactionPool()
	for i, tx := range txs {
		txHash := tx.Hash()
		if err := transactions.Put(txHash, tx); err != nil {
			return err
		}
		location := TransactionLocation{Height: block.Height, IndexInBlock: uint32(i)}
		if err := locations.Put(txHash, location); err != nil {
			return err
		}
		if err := blockTxs.Push(txHash); err != nil {
			return err
		}
		if err := pool.Remove(txHash); err != nil {
			return err
		}
	}

	callErrors, err := s.CallErrors(block.Height)
	if err != nil {
		return err
	}
	for call, execError := range errors {
		if err := callErrors.Put(call, execError); err != nil {
			return err
		}
	}
	return nil
}

func heightGroupID(height uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, height)
}

func mustAddress(name string) index.Address {
	address, err := index.NewAddress(name)
	if err != nil {
		panic(fmt.Sprintf("invalid core index name %q: %v", name, err))
	}
	return address
}
