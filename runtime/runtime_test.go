package runtime

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/merkledger/merkledger/blockchain"
	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/index"
	"github.com/merkledger/merkledger/storage"
	"github.com/merkledger/merkledger/storage/memory"
)

const (
	counterServiceID = 7

	txCreateCounter    = 0
	txIncrementCounter = 1

	codeCounterExists  = 1
	codeUnknownCounter = 2
)

// counterService keeps named counters: a creation transaction adds a
// counter at zero, an increment transaction bumps it by one.
type counterService struct {
	converters *ConverterRegistry
}

func newCounterService() *counterService {
	converters := NewConverterRegistry()
	for _, txID := range []uint16{txCreateCounter, txIncrementCounter} {
		if err := converters.Register(txID, RawConverter{}); err != nil {
			panic(err)
		}
	}
	return &counterService{converters: converters}
}

func (s *counterService) ID() uint16   { return counterServiceID }
func (s *counterService) Name() string { return "counter" }

func (s *counterService) counters(view storage.View) *index.Map[string, uint64] {
	address, err := index.NewAddress("counter.values")
	if err != nil {
		panic(err)
	}
	return index.NewMap(address, view, common.StringSerializer{}, common.Uint64Serializer{})
}

func (s *counterService) Initialize(fork *storage.Fork, config blockchain.Config) error {
	// a counter tracking the block transaction limit, for query tests
	return s.counters(fork).Put("txs_block_limit", uint64(config.TxsBlockLimit))
}

func (s *counterService) Execute(ctx *ExecutionContext, transactionID uint16, payload []byte) error {
	converter, err := s.converters.Converter(transactionID)
	if err != nil {
		return err
	}
	argument, err := converter.Decode(payload)
	if err != nil {
		return err
	}
	name := string(argument.([]byte))
	counters := s.counters(ctx.Fork())

	switch transactionID {
	case txCreateCounter:
		if exists, err := counters.ContainsKey(name); err != nil {
			return err
		} else if exists {
			return blockchain.ServiceError(codeCounterExists, fmt.Sprintf("counter %q already exists", name))
		}
		return counters.Put(name, 0)
	case txIncrementCounter:
		value, found, err := counters.Get(name)
		if err != nil {
			return err
		}
		if !found {
			return blockchain.ServiceError(codeUnknownCounter, fmt.Sprintf("no counter %q", name))
		}
		return counters.Put(name, value+1)
	}
	return nil
}

// chaosService writes state and then fails, to probe the rollback of
// failed transactions.
type chaosService struct{}

func (s chaosService) ID() uint16   { return 13 }
func (s chaosService) Name() string { return "chaos" }

func (s chaosService) Initialize(*storage.Fork, blockchain.Config) error { return nil }

func (s chaosService) Execute(ctx *ExecutionContext, transactionID uint16, payload []byte) error {
	if err := ctx.Fork().Put([]byte("chaos.marker"), payload); err != nil {
		return err
	}
	return fmt.Errorf("service exploded after writing")
}

func testConfig() blockchain.Config {
	return blockchain.Config{
		ValidatorKeys: []common.PublicKey{{1}},
		TxsBlockLimit: 4,
		MaxMessageLen: 1024,
	}
}

func testRuntime(t *testing.T) (*Runtime, ed25519.PrivateKey) {
	t.Helper()
	db := memory.NewDatabase()
	t.Cleanup(func() { db.Close() })

	rt := NewRuntime(db)
	if err := rt.Deploy(newCounterService()); err != nil {
		t.Fatalf("failed to deploy the counter service: %v", err)
	}
	if err := rt.Deploy(chaosService{}); err != nil {
		t.Fatalf("failed to deploy the chaos service: %v", err)
	}
	if err := rt.InitializeGenesis(testConfig()); err != nil {
		t.Fatalf("failed to create the genesis block: %v", err)
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return rt, key
}

// counterValue reads a counter from the committed state.
func counterValue(t *testing.T, rt *Runtime, name string) (uint64, bool) {
	t.Helper()
	snapshot, err := rt.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()
	value, found, err := newCounterService().counters(snapshot).Get(name)
	if err != nil {
		t.Fatalf("failed to read counter %q: %v", name, err)
	}
	return value, found
}

func submit(t *testing.T, rt *Runtime, key ed25519.PrivateKey, txID uint16, payload string) common.Hash {
	t.Helper()
	msg := blockchain.SignTransaction(key, counterServiceID, txID, []byte(payload))
	txHash, err := rt.SubmitTransaction(msg)
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	return txHash
}

func TestRuntime_DeployValidation(t *testing.T) {
	rt := NewRuntime(memory.NewDatabase())
	if err := rt.Deploy(newCounterService()); err != nil {
		t.Fatalf("failed to deploy: %v", err)
	}
	if err := rt.Deploy(newCounterService()); !common.IsArgument(err) {
		t.Errorf("duplicate service id not rejected, got %v", err)
	}
}

func TestRuntime_GenesisCreatesBlockZero(t *testing.T) {
	rt, _ := testRuntime(t)

	snapshot, err := rt.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()
	chain := blockchain.NewBlockchain(snapshot)

	height, err := chain.Height()
	if err != nil || height != 0 {
		t.Errorf("unexpected height %d, err %v", height, err)
	}
	genesis, err := chain.BlockByHeight(0)
	if err != nil {
		t.Fatalf("failed to read the genesis block: %v", err)
	}
	if genesis.PrevHash != (common.Hash{}) || genesis.TxCount != 0 {
		t.Errorf("malformed genesis block: %+v", genesis)
	}
	config, err := chain.ConsensusConfig()
	if err != nil || config.TxsBlockLimit != testConfig().TxsBlockLimit {
		t.Errorf("unexpected config %+v, err %v", config, err)
	}

	// service initialization ran during genesis
	if value, found := counterValue(t, rt, "txs_block_limit"); !found || value != 4 {
		t.Errorf("service initialization state missing: %d, found %t", value, found)
	}

	if err := rt.InitializeGenesis(testConfig()); !common.IsState(err) {
		t.Errorf("second genesis not rejected, got %v", err)
	}
}

func TestRuntime_SubmitValidation(t *testing.T) {
	rt, key := testRuntime(t)

	unsigned := blockchain.SignTransaction(key, counterServiceID, txCreateCounter, []byte("a"))
	unsigned.Signature[0] ^= 0xff
	if _, err := rt.SubmitTransaction(unsigned); !common.IsArgument(err) {
		t.Errorf("broken signature not rejected, got %v", err)
	}

	foreign := blockchain.SignTransaction(key, 99, txCreateCounter, []byte("a"))
	if _, err := rt.SubmitTransaction(foreign); !common.IsArgument(err) {
		t.Errorf("unknown service not rejected, got %v", err)
	}

	huge := blockchain.SignTransaction(key, counterServiceID, txCreateCounter, make([]byte, 2048))
	if _, err := rt.SubmitTransaction(huge); !common.IsArgument(err) {
		t.Errorf("oversized message not rejected, got %v", err)
	}
}

func TestRuntime_SubmitIsIdempotentWhilePooled(t *testing.T) {
	rt, key := testRuntime(t)
	first := submit(t, rt, key, txCreateCounter, "visits")
	second := submit(t, rt, key, txCreateCounter, "visits")
	if first != second {
		t.Errorf("resubmission changed the transaction hash")
	}
}

func TestRuntime_ExecuteBlockAppliesTransactions(t *testing.T) {
	rt, key := testRuntime(t)

	createHash := submit(t, rt, key, txCreateCounter, "visits")
	block1, err := rt.ExecuteBlock(1, []common.Hash{createHash})
	if err != nil {
		t.Fatalf("failed to execute block: %v", err)
	}
	if block1.Height != 1 || block1.TxCount != 1 {
		t.Errorf("malformed block: %+v", block1)
	}

	inc1 := submit(t, rt, key, txIncrementCounter, "visits")
	// distinct author so the two increments hash differently
	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	inc2 := submit(t, rt, otherKey, txIncrementCounter, "visits")
	block2, err := rt.ExecuteBlock(1, []common.Hash{inc1, inc2})
	if err != nil {
		t.Fatalf("failed to execute block: %v", err)
	}
	if block2.PrevHash != block1.Hash() {
		t.Errorf("block 2 does not link to block 1")
	}

	if value, found := counterValue(t, rt, "visits"); !found || value != 2 {
		t.Errorf("unexpected counter state: %d, found %t", value, found)
	}

	snapshot, err := rt.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()
	chain := blockchain.NewBlockchain(snapshot)
	location, found, err := chain.TransactionLocation(inc2)
	if err != nil || !found {
		t.Fatalf("location of a committed transaction missing: found %t, err %v", found, err)
	}
	if location.Height != 2 || location.IndexInBlock != 1 {
		t.Errorf("unexpected location %+v", location)
	}
	if pooled, _ := chain.InPool(createHash); pooled {
		t.Errorf("committed transaction still pooled")
	}
}

func TestRuntime_ServiceErrorIsRecordedNotFatal(t *testing.T) {
	rt, key := testRuntime(t)

	createHash := submit(t, rt, key, txCreateCounter, "visits")
	badHash := submit(t, rt, key, txIncrementCounter, "no-such-counter")
	block, err := rt.ExecuteBlock(1, []common.Hash{createHash, badHash})
	if err != nil {
		t.Fatalf("failed to execute block: %v", err)
	}

	snapshot, err := rt.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()
	chain := blockchain.NewBlockchain(snapshot)

	execErr, found, err := chain.CallError(block.Height, blockchain.TransactionCall(1))
	if err != nil || !found {
		t.Fatalf("call error missing: found %t, err %v", found, err)
	}
	if execErr.Kind != blockchain.ErrorKindService || execErr.Code != codeUnknownCounter {
		t.Errorf("unexpected call error %+v", execErr)
	}
	if _, found, _ := chain.CallError(block.Height, blockchain.TransactionCall(0)); found {
		t.Errorf("successful call reported an error")
	}

	// the successful transaction of the same block took effect
	if _, found := counterValue(t, rt, "visits"); !found {
		t.Errorf("successful transaction lost")
	}
}

func TestRuntime_FailedTransactionWritesAreRolledBack(t *testing.T) {
	rt, key := testRuntime(t)

	msg := blockchain.SignTransaction(key, 13, 0, []byte("boom"))
	txHash, err := rt.SubmitTransaction(msg)
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	goodHash := submit(t, rt, key, txCreateCounter, "survivor")

	block, err := rt.ExecuteBlock(1, []common.Hash{txHash, goodHash})
	if err != nil {
		t.Fatalf("failed to execute block: %v", err)
	}

	snapshot, err := rt.Snapshot()
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	defer snapshot.Release()

	// the failed service's write must not have leaked
	if _, found, _ := snapshot.Get([]byte("chaos.marker")); found {
		t.Errorf("write of a failed transaction persisted")
	}
	chain := blockchain.NewBlockchain(snapshot)
	execErr, found, err := chain.CallError(block.Height, blockchain.TransactionCall(0))
	if err != nil || !found {
		t.Fatalf("call error missing: found %t, err %v", found, err)
	}
	if execErr.Kind != blockchain.ErrorKindUnexpected {
		t.Errorf("unexpected error kind %+v", execErr)
	}
	if _, found := counterValue(t, rt, "survivor"); !found {
		t.Errorf("transaction after the failed one was lost")
	}
}

func TestRuntime_RejectsUnpooledTransaction(t *testing.T) {
	rt, _ := testRuntime(t)
	if _, err := rt.ExecuteBlock(1, []common.Hash{{1, 2, 3}}); !common.IsArgument(err) {
		t.Errorf("unknown transaction hash not rejected, got %v", err)
	}
	if value, found := counterValue(t, rt, "txs_block_limit"); !found || value != 4 {
		t.Errorf("failed block creation disturbed the state: %d, found %t", value, found)
	}
}

func TestRuntime_RejectsOverfullBlock(t *testing.T) {
	rt, key := testRuntime(t)
	hashes := make([]common.Hash, 0, 5)
	for i := 0; i < 5; i++ {
		hashes = append(hashes, submit(t, rt, key, txCreateCounter, fmt.Sprintf("c%d", i)))
	}
	if _, err := rt.ExecuteBlock(1, hashes); !common.IsArgument(err) {
		t.Errorf("block above the transaction limit not rejected, got %v", err)
	}
}

func TestRuntime_CommittedTransactionCannotBeResubmitted(t *testing.T) {
	rt, key := testRuntime(t)
	txHash := submit(t, rt, key, txCreateCounter, "visits")
	if _, err := rt.ExecuteBlock(1, []common.Hash{txHash}); err != nil {
		t.Fatalf("failed to execute block: %v", err)
	}
	msg := blockchain.SignTransaction(key, counterServiceID, txCreateCounter, []byte("visits"))
	if _, err := rt.SubmitTransaction(msg); !common.IsState(err) {
		t.Errorf("resubmission of a committed transaction not rejected, got %v", err)
	}
}
