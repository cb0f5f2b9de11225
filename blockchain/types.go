// Package blockchain defines the indices maintained by the core logic
// of the ledger: the block register, the transaction log and pool, and
// the consensus configuration, together with the types stored in them.
package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/merkledger/merkledger/common"
)

// TransactionLocation keeps the position of a committed transaction:
// the block height and the index inside that block.
type TransactionLocation struct {
	Height       uint64
	IndexInBlock uint32
}

// TransactionLocationSerializer is a Serializer of the
// TransactionLocation type.
type TransactionLocationSerializer struct{}

func (s TransactionLocationSerializer) ToBytes(value TransactionLocation) []byte {
	data := binary.BigEndian.AppendUint64(nil, value.Height)
	return binary.BigEndian.AppendUint32(data, value.IndexInBlock)
}
func (s TransactionLocationSerializer) FromBytes(data []byte) (TransactionLocation, error) {
	if len(data) != 12 {
		return TransactionLocation{}, fmt.Errorf("%w: transaction location must be 12 bytes, got %d",
			common.ErrFormat, len(data))
	}
	return TransactionLocation{
		Height:       binary.BigEndian.Uint64(data[:8]),
		IndexInBlock: binary.BigEndian.Uint32(data[8:]),
	}, nil
}
func (s TransactionLocationSerializer) Size() int {
	return 12
}

// CallKind distinguishes the calls that can fail within one block.
type CallKind uint8

const (
	// CallTransaction is the execution of the transaction at a given
	// position in the block.
	CallTransaction CallKind = iota
	// CallBeforeTransactions is a service hook running before the block
	// transactions; the call id holds the service id.
	CallBeforeTransactions
	// CallAfterTransactions is a service hook running after the block
	// transactions; the call id holds the service id.
	CallAfterTransactions
)

// CallInBlock identifies one call within a block.
type CallInBlock struct {
	Kind CallKind
	// ID is the transaction position for CallTransaction calls and the
	// service id for the hook calls.
	ID uint32
}

// TransactionCall identifies the transaction at the given position.
func TransactionCall(position uint32) CallInBlock {
	return CallInBlock{Kind: CallTransaction, ID: position}
}

// CallInBlockSerializer is a Serializer of the CallInBlock type. The
// encoding orders calls by kind, then by id.
type CallInBlockSerializer struct{}

func (s CallInBlockSerializer) ToBytes(value CallInBlock) []byte {
	return binary.BigEndian.AppendUint32([]byte{byte(value.Kind)}, value.ID)
}
func (s CallInBlockSerializer) FromBytes(data []byte) (CallInBlock, error) {
	if len(data) != 5 || data[0] > byte(CallAfterTransactions) {
		return CallInBlock{}, fmt.Errorf("%w: invalid call-in-block encoding %x", common.ErrFormat, data)
	}
	return CallInBlock{
		Kind: CallKind(data[0]),
		ID:   binary.BigEndian.Uint32(data[1:]),
	}, nil
}
func (s CallInBlockSerializer) Size() int {
	return 5
}

// ErrorKind classifies an execution error.
type ErrorKind uint8

const (
	// ErrorKindUnexpected marks an unanticipated failure of the service
	// code.
	ErrorKindUnexpected ErrorKind = iota
	// ErrorKindService marks a failure reported by the service logic
	// itself, with a service-defined code.
	ErrorKindService
)

// ExecutionError describes a failed call in a block.
type ExecutionError struct {
	Kind        ErrorKind
	Code        uint16
	Description string
}

func (e ExecutionError) Error() string {
	return fmt.Sprintf("execution error (kind %d, code %d): %s", e.Kind, e.Code, e.Description)
}

// ServiceError creates an error reported by service logic with the
// given service-defined code.
func ServiceError(code uint16, description string) ExecutionError {
	return ExecutionError{Kind: ErrorKindService, Code: code, Description: description}
}

// ExecutionErrorSerializer is a Serializer of the ExecutionError type.
type ExecutionErrorSerializer struct{}

func (s ExecutionErrorSerializer) ToBytes(value ExecutionError) []byte {
	data, err := rlp.EncodeToBytes(&value)
	if err != nil {
		panic(fmt.Sprintf("execution error encoding failed: %v", err))
	}
	return data
}
func (s ExecutionErrorSerializer) FromBytes(data []byte) (ExecutionError, error) {
	var value ExecutionError
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return ExecutionError{}, fmt.Errorf("%w: invalid execution error: %v", common.ErrFormat, err)
	}
	return value, nil
}
func (s ExecutionErrorSerializer) Size() int {
	return common.VariableSize
}

// Config is the consensus configuration of the network, stored from
// the genesis block on and updated by configuration-change
// transactions.
type Config struct {
	// ValidatorKeys are the service keys of the validator nodes.
	ValidatorKeys []common.PublicKey
	// TxsBlockLimit caps the number of transactions per block.
	TxsBlockLimit uint32
	// MaxMessageLen caps the accepted transaction message size in bytes.
	MaxMessageLen uint32
}

// ConfigSerializer is a Serializer of the consensus Config type.
type ConfigSerializer struct{}

func (s ConfigSerializer) ToBytes(value Config) []byte {
	data, err := rlp.EncodeToBytes(&value)
	if err != nil {
		panic(fmt.Sprintf("consensus config encoding failed: %v", err))
	}
	return data
}
func (s ConfigSerializer) FromBytes(data []byte) (Config, error) {
	var value Config
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return Config{}, fmt.Errorf("%w: invalid consensus config: %v", common.ErrFormat, err)
	}
	return value, nil
}
func (s ConfigSerializer) Size() int {
	return common.VariableSize
}
