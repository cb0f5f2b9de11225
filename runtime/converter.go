package runtime

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
	"google.golang.org/protobuf/proto"
)

// Converter translates between a typed transaction argument and the
// payload bytes carried in a transaction message. Converters are
// stateless and shared freely.
type Converter interface {
	Encode(argument any) ([]byte, error)
	Decode(payload []byte) (any, error)
}

// ConverterRegistry maps the transaction identifiers of one service to
// the converters of their arguments.
type ConverterRegistry struct {
	converters map[uint16]Converter
}

// NewConverterRegistry creates an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{converters: map[uint16]Converter{}}
}

// Register binds a converter to a transaction identifier. Registering
// an identifier twice is an error.
func (r *ConverterRegistry) Register(transactionID uint16, converter Converter) error {
	if _, exists := r.converters[transactionID]; exists {
		return fmt.Errorf("%w: converter for transaction %d is already registered",
			common.ErrArgument, transactionID)
	}
	r.converters[transactionID] = converter
	return nil
}

// Converter returns the converter of the given transaction identifier.
func (r *ConverterRegistry) Converter(transactionID uint16) (Converter, error) {
	converter, exists := r.converters[transactionID]
	if !exists {
		return nil, fmt.Errorf("%w: no converter for transaction %d", common.ErrArgument, transactionID)
	}
	return converter, nil
}

// ProtoConverter adapts a protobuf message type to the Converter
// contract.
type ProtoConverter[M proto.Message] struct {
	serializer common.ProtobufSerializer[M]
}

// NewProtoConverter creates a converter for the protobuf message type
// M.
func NewProtoConverter[M proto.Message](factory func() M) ProtoConverter[M] {
	return ProtoConverter[M]{serializer: common.Protobuf(factory)}
}

func (c ProtoConverter[M]) Encode(argument any) ([]byte, error) {
	msg, ok := argument.(M)
	if !ok {
		return nil, fmt.Errorf("%w: argument type %T does not match the converter", common.ErrArgument, argument)
	}
	return c.serializer.ToBytes(msg), nil
}

func (c ProtoConverter[M]) Decode(payload []byte) (any, error) {
	return c.serializer.FromBytes(payload)
}

// RawConverter passes payload bytes through unchanged, for services
// defining their own payload encoding.
type RawConverter struct{}

func (RawConverter) Encode(argument any) ([]byte, error) {
	payload, ok := argument.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: argument type %T is not a byte slice", common.ErrArgument, argument)
	}
	return payload, nil
}

func (RawConverter) Decode(payload []byte) (any, error) {
	return payload, nil
}
