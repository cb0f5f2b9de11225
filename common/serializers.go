package common

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// VariableSize is returned by Serializer.Size for types without a fixed
// serialized length.
const VariableSize = -1

// Serializer converts values of a type to and from their persisted byte
// representation. ToBytes and FromBytes form a bijection on the supported
// value space; FromBytes reports an ErrFormat failure on truncated or
// corrupt input and never silently truncates or wraps.
//
// Fixed-width integer serializers use big-endian byte order so that the
// lexicographic order of the produced keys matches the numeric order of
// the values.
type Serializer[T any] interface {

	// ToBytes serializes the value to a byte slice.
	ToBytes(value T) []byte

	// FromBytes deserializes the value from a byte slice.
	FromBytes(data []byte) (T, error)

	// Size provides the serialized size in bytes, or VariableSize.
	Size() int
}

// BoolSerializer is a Serializer of the bool type.
type BoolSerializer struct{}

func (s BoolSerializer) ToBytes(value bool) []byte {
	if value {
		return []byte{1}
	}
	return []byte{0}
}
func (s BoolSerializer) FromBytes(data []byte) (bool, error) {
	if len(data) != 1 || data[0] > 1 {
		return false, fmt.Errorf("%w: invalid bool encoding %x", ErrFormat, data)
	}
	return data[0] == 1, nil
}
func (s BoolSerializer) Size() int {
	return 1
}

// Uint16Serializer is a big-endian Serializer of the uint16 type.
type Uint16Serializer struct{}

func (s Uint16Serializer) ToBytes(value uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, value)
}
func (s Uint16Serializer) FromBytes(data []byte) (uint16, error) {
	if len(data) != 2 {
		return 0, fmt.Errorf("%w: uint16 must be 2 bytes, got %d", ErrFormat, len(data))
	}
	return binary.BigEndian.Uint16(data), nil
}
func (s Uint16Serializer) Size() int {
	return 2
}

// Uint32Serializer is a big-endian Serializer of the uint32 type.
type Uint32Serializer struct{}

func (s Uint32Serializer) ToBytes(value uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, value)
}
func (s Uint32Serializer) FromBytes(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("%w: uint32 must be 4 bytes, got %d", ErrFormat, len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}
func (s Uint32Serializer) Size() int {
	return 4
}

// Uint64Serializer is a big-endian Serializer of the uint64 type.
type Uint64Serializer struct{}

func (s Uint64Serializer) ToBytes(value uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, value)
}
func (s Uint64Serializer) FromBytes(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: uint64 must be 8 bytes, got %d", ErrFormat, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
func (s Uint64Serializer) Size() int {
	return 8
}

// StringSerializer is a Serializer of the string type, persisting the
// raw UTF-8 bytes.
type StringSerializer struct{}

func (s StringSerializer) ToBytes(value string) []byte {
	return []byte(value)
}
func (s StringSerializer) FromBytes(data []byte) (string, error) {
	return string(data), nil
}
func (s StringSerializer) Size() int {
	return VariableSize
}

// BytesSerializer is an identity Serializer of raw byte slices.
type BytesSerializer struct{}

func (s BytesSerializer) ToBytes(value []byte) []byte {
	return value
}
func (s BytesSerializer) FromBytes(data []byte) ([]byte, error) {
	return data, nil
}
func (s BytesSerializer) Size() int {
	return VariableSize
}

// HashSerializer is a Serializer of the Hash type.
type HashSerializer struct{}

func (s HashSerializer) ToBytes(value Hash) []byte {
	return value[:]
}
func (s HashSerializer) FromBytes(data []byte) (Hash, error) {
	return HashFromBytes(data)
}
func (s HashSerializer) Size() int {
	return HashLength
}

// PublicKeySerializer is a Serializer of the PublicKey type.
type PublicKeySerializer struct{}

func (s PublicKeySerializer) ToBytes(value PublicKey) []byte {
	return value[:]
}
func (s PublicKeySerializer) FromBytes(data []byte) (PublicKey, error) {
	var key PublicKey
	if len(data) != PublicKeyLength {
		return key, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrFormat, PublicKeyLength, len(data))
	}
	copy(key[:], data)
	return key, nil
}
func (s PublicKeySerializer) Size() int {
	return PublicKeyLength
}

// ProtobufSerializer is a Serializer of protobuf messages, used for
// service-defined transaction payloads and stored values. The factory
// produces empty messages to decode into. Serialization is deterministic
// so that equal messages produce equal bytes.
type ProtobufSerializer[M proto.Message] struct {
	factory func() M
}

// Protobuf creates a serializer for the protobuf message type M.
func Protobuf[M proto.Message](factory func() M) ProtobufSerializer[M] {
	return ProtobufSerializer[M]{factory: factory}
}

func (s ProtobufSerializer[M]) ToBytes(value M) []byte {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(value)
	if err != nil {
		// Marshalling an in-memory message can only fail on invalid
		// required fields, which the value space excludes.
		panic(fmt.Sprintf("protobuf marshalling failed: %v", err))
	}
	return data
}
func (s ProtobufSerializer[M]) FromBytes(data []byte) (M, error) {
	msg := s.factory()
	if err := proto.Unmarshal(data, msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return msg, nil
}
func (s ProtobufSerializer[M]) Size() int {
	return VariableSize
}
