package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/merkledger/merkledger/blockchain"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/merkle"
	"github.com/merkledger/merkledger/storage"
)

// coreNamespace is the index name prefix reserved for the core schema.
const coreNamespace = "core."

// Runtime owns the database and the deployed services. It is the only
// writer of the database: transactions enter through SubmitTransaction
// and state advances only through InitializeGenesis and ExecuteBlock.
type Runtime struct {
	db       storage.Database
	services map[uint16]Service
}

// NewRuntime creates a runtime over the given database with no
// services deployed.
func NewRuntime(db storage.Database) *Runtime {
	return &Runtime{
		db:       db,
		services: map[uint16]Service{},
	}
}

// Deploy registers a service. Services must be deployed before the
// genesis block is created and their identifiers and names must be
// unique; the core namespace is reserved.
func (r *Runtime) Deploy(service Service) error {
	if _, exists := r.services[service.ID()]; exists {
		return fmt.Errorf("%w: service id %d is already deployed", common.ErrArgument, service.ID())
	}
	name := service.Name()
	if name == "" || strings.HasPrefix(name, coreNamespace) {
		return fmt.Errorf("%w: invalid service name %q", common.ErrArgument, name)
	}
	for _, deployed := range r.services {
		if deployed.Name() == name {
			return fmt.Errorf("%w: service name %q is already deployed", common.ErrArgument, name)
		}
	}
	r.services[service.ID()] = service
	return nil
}

// InitializeGenesis stores the consensus configuration, initializes
// every deployed service, and commits the empty genesis block at
// height 0. It must run exactly once per database.
func (r *Runtime) InitializeGenesis(config blockchain.Config) error {
	fork, err := r.db.Fork()
	if err != nil {
		return err
	}
	if err := r.createGenesis(fork, config); err != nil {
		fork.Release()
		return err
	}
	return r.db.Merge(fork)
}

func (r *Runtime) createGenesis(fork *storage.Fork, config blockchain.Config) error {
	schema := blockchain.NewSchema(fork)
	if _, err := schema.Height(); err == nil {
		return fmt.Errorf("%w: genesis block already created", common.ErrState)
	} else if !common.IsState(err) {
		return err
	}
	if err := schema.SetConsensusConfig(config); err != nil {
		return err
	}
	for _, id := range r.serviceIDs() {
		if err := r.services[id].Initialize(fork, config); err != nil {
			return fmt.Errorf("initializing service %q: %w", r.services[id].Name(), err)
		}
	}
	block, err := r.buildBlock(schema, 0, 0, common.Hash{}, nil, nil)
	if err != nil {
		return err
	}
	return schema.AddBlock(block, nil, nil)
}

// SubmitTransaction validates a signed message and adds it to the
// pool. Submitting a message that is already pooled is a no-op; a
// message that is already committed is rejected.
func (r *Runtime) SubmitTransaction(msg blockchain.TransactionMessage) (common.Hash, error) {
	txHash := msg.Hash()
	if !msg.VerifySignature() {
		return txHash, fmt.Errorf("%w: invalid transaction signature", common.ErrArgument)
	}
	if _, exists := r.services[msg.ServiceID]; !exists {
		return txHash, fmt.Errorf("%w: unknown service id %d", common.ErrArgument, msg.ServiceID)
	}

	fork, err := r.db.Fork()
	if err != nil {
		return txHash, err
	}
	if err := r.addToPool(fork, txHash, msg); err != nil {
		fork.Release()
		return txHash, err
	}
	return txHash, r.db.Merge(fork)
}

func (r *Runtime) addToPool(fork *storage.Fork, txHash common.Hash, msg blockchain.TransactionMessage) error {
	schema := blockchain.NewSchema(fork)

	config, err := schema.ConsensusConfig()
	if err != nil {
		return err
	}
	size := len(blockchain.TransactionMessageSerializer{}.ToBytes(msg))
	if uint64(size) > uint64(config.MaxMessageLen) {
		return fmt.Errorf("%w: message size %d exceeds the limit %d",
			common.ErrArgument, size, config.MaxMessageLen)
	}

	if _, committed, err := schema.TransactionLocations().Get(txHash); err != nil {
		return err
	} else if committed {
		return fmt.Errorf("%w: transaction %v is already committed", common.ErrState, txHash)
	}
	if pooled, err := schema.TransactionPool().Contains(txHash); err != nil || pooled {
		return err
	}

	if err := schema.Transactions().Put(txHash, msg); err != nil {
		return err
	}
	return schema.TransactionPool().Add(txHash)
}

// ExecuteBlock executes the given pooled transactions in order and
// commits the resulting block. Failures of individual transactions are
// recorded as call errors of the block; storage failures abort the
// whole block and leave the database untouched.
func (r *Runtime) ExecuteBlock(proposer uint32, txHashes []common.Hash) (blockchain.Block, error) {
	fork, err := r.db.Fork()
	if err != nil {
		return blockchain.Block{}, err
	}
	block, err := r.createBlock(fork, proposer, txHashes)
	if err != nil {
		fork.Release()
		return blockchain.Block{}, err
	}
	if err := r.db.Merge(fork); err != nil {
		return blockchain.Block{}, err
	}
	return block, nil
}

func (r *Runtime) createBlock(fork *storage.Fork, proposer uint32, txHashes []common.Hash) (blockchain.Block, error) {
	schema := blockchain.NewSchema(fork)

	config, err := schema.ConsensusConfig()
	if err != nil {
		return blockchain.Block{}, err
	}
	if uint64(len(txHashes)) > uint64(config.TxsBlockLimit) {
		return blockchain.Block{}, fmt.Errorf("%w: %d transactions exceed the block limit %d",
			common.ErrArgument, len(txHashes), config.TxsBlockLimit)
	}
	height, err := schema.Height()
	if err != nil {
		return blockchain.Block{}, err
	}
	prevHash, err := schema.BlockHashes().Get(height)
	if err != nil {
		return blockchain.Block{}, err
	}

	txs := make([]blockchain.TransactionMessage, 0, len(txHashes))
	callErrors := map[blockchain.CallInBlock]blockchain.ExecutionError{}
	for i, txHash := range txHashes {
		msg, err := r.pooledTransaction(schema, txHash)
		if err != nil {
			return blockchain.Block{}, err
		}
		txs = append(txs, msg)
		if execErr, err := r.executeTransaction(fork, txHash, msg); err != nil {
			return blockchain.Block{}, err
		} else if execErr != nil {
			callErrors[blockchain.TransactionCall(uint32(i))] = *execErr
		}
	}

	block, err := r.buildBlock(schema, proposer, height+1, prevHash, txHashes, callErrors)
	if err != nil {
		return blockchain.Block{}, err
	}
	if err := schema.AddBlock(block, txs, callErrors); err != nil {
		return blockchain.Block{}, err
	}
	return block, nil
}

func (r *Runtime) pooledTransaction(schema *blockchain.Schema, txHash common.Hash) (blockchain.TransactionMessage, error) {
	pooled, err := schema.TransactionPool().Contains(txHash)
	if err != nil {
		return blockchain.TransactionMessage{}, err
	}
	if !pooled {
		return blockchain.TransactionMessage{}, fmt.Errorf("%w: transaction %v is not in the pool",
			common.ErrArgument, txHash)
	}
	msg, found, err := schema.Transactions().Get(txHash)
	if err != nil {
		return blockchain.TransactionMessage{}, err
	}
	if !found {
		return blockchain.TransactionMessage{}, fmt.Errorf("%w: pooled transaction %v has no message",
			common.ErrFormat, txHash)
	}
	return msg, nil
}

// executeTransaction runs one transaction on a savepoint over the
// block fork. Service failures discard the transaction's writes and
// are reported as an execution error; storage failures propagate and
// abort the block.
func (r *Runtime) executeTransaction(fork *storage.Fork, txHash common.Hash,
	msg blockchain.TransactionMessage) (*blockchain.ExecutionError, error) {
	service := r.services[msg.ServiceID]
	if service == nil {
		execErr := blockchain.ExecutionError{
			Kind:        blockchain.ErrorKindUnexpected,
			Description: fmt.Sprintf("unknown service id %d", msg.ServiceID),
		}
		return &execErr, nil
	}

	txFork := storage.NestedFork(fork)
	ctx := NewExecutionContext(txFork, txHash, msg.Author)
	if err := service.Execute(ctx, msg.TransactionID, msg.Payload); err != nil {
		txFork.Release()
		if common.IsResource(err) {
			return nil, err
		}
		var execErr blockchain.ExecutionError
		if !errors.As(err, &execErr) {
			execErr = blockchain.ExecutionError{
				Kind:        blockchain.ErrorKindUnexpected,
				Description: err.Error(),
			}
		}
		return &execErr, nil
	}
	changes, err := txFork.Finish()
	if err != nil {
		return nil, err
	}
	return nil, fork.Apply(changes)
}

// buildBlock assembles the header committing to the block contents and
// the database state after execution.
func (r *Runtime) buildBlock(schema *blockchain.Schema, proposer uint32, height uint64, prevHash common.Hash,
	txHashes []common.Hash, callErrors map[blockchain.CallInBlock]blockchain.ExecutionError) (blockchain.Block, error) {

	txLeaves := make([]common.Hash, len(txHashes))
	for i, txHash := range txHashes {
		txLeaves[i] = merkle.LeafHash(txHash[:])
	}
	txRoot := merkle.ListRootHash(txLeaves)

	errLeaves := make([]merkle.MapLeaf, 0, len(callErrors))
	for call, execErr := range callErrors {
		errLeaves = append(errLeaves, merkle.MapLeaf{
			KeyHash:   common.Sha256(blockchain.CallInBlockSerializer{}.ToBytes(call)),
			ValueHash: common.Sha256(blockchain.ExecutionErrorSerializer{}.ToBytes(execErr)),
		})
	}
	sort.Slice(errLeaves, func(i, j int) bool {
		return errLeaves[i].KeyHash.Compare(errLeaves[j].KeyHash) < 0
	})
	errRoot := merkle.MapRootHash(errLeaves)

	configRoot, err := schema.ConsensusConfigHash()
	if err != nil {
		return blockchain.Block{}, err
	}
	stateHash := common.Sha256(configRoot[:], txRoot[:], errRoot[:])

	return blockchain.Block{
		ProposerID: proposer,
		Height:     height,
		TxCount:    uint32(len(txHashes)),
		PrevHash:   prevHash,
		TxRootHash: txRoot,
		StateHash:  stateHash,
		ErrorHash:  errRoot,
	}, nil
}

func (r *Runtime) serviceIDs() []uint16 {
	ids := make([]uint16, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns a read view of the latest committed state, for
// building a Blockchain facade or service read schemas over it.
func (r *Runtime) Snapshot() (storage.Snapshot, error) {
	return r.db.Snapshot()
}
