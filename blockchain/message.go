package blockchain

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/merkledger/merkledger/common"
)

// TransactionMessage is a signed transaction as submitted by a client.
// The author key and signature authenticate the payload, which is
// dispatched to the service identified by ServiceID.
type TransactionMessage struct {
	// Author is the public key of the message author.
	Author common.PublicKey
	// ServiceID identifies the target service instance.
	ServiceID uint16
	// TransactionID identifies the transaction method within the
	// service.
	TransactionID uint16
	// Payload is the service-specific transaction argument.
	Payload []byte
	// Signature signs the payload part of the message with the author
	// key.
	Signature common.Signature
}

// Hash computes the hash of the whole signed message, used as the
// transaction identifier throughout the core indices.
func (m TransactionMessage) Hash() common.Hash {
	return common.Sha256(TransactionMessageSerializer{}.ToBytes(m))
}

// SigningPayload is the portion of the message covered by the
// signature.
func (m TransactionMessage) SigningPayload() []byte {
	payload := struct {
		Author        common.PublicKey
		ServiceID     uint16
		TransactionID uint16
		Payload       []byte
	}{m.Author, m.ServiceID, m.TransactionID, m.Payload}
	data, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		panic(fmt.Sprintf("transaction payload encoding failed: %v", err))
	}
	return data
}

// VerifySignature checks the message signature against the author key.
func (m TransactionMessage) VerifySignature() bool {
	return ed25519.Verify(m.Author[:], m.SigningPayload(), m.Signature[:])
}

// SignTransaction builds a signed transaction message with the given
// ed25519 private key.
func SignTransaction(key ed25519.PrivateKey, serviceID, transactionID uint16, payload []byte) TransactionMessage {
	msg := TransactionMessage{
		ServiceID:     serviceID,
		TransactionID: transactionID,
		Payload:       payload,
	}
	copy(msg.Author[:], key.Public().(ed25519.PublicKey))
	copy(msg.Signature[:], ed25519.Sign(key, msg.SigningPayload()))
	return msg
}

// TransactionMessageSerializer is a Serializer of the
// TransactionMessage type.
type TransactionMessageSerializer struct{}

func (s TransactionMessageSerializer) ToBytes(value TransactionMessage) []byte {
	data, err := rlp.EncodeToBytes(&value)
	if err != nil {
		panic(fmt.Sprintf("transaction message encoding failed: %v", err))
	}
	return data
}
func (s TransactionMessageSerializer) FromBytes(data []byte) (TransactionMessage, error) {
	var value TransactionMessage
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return TransactionMessage{}, fmt.Errorf("%w: invalid transaction message: %v", common.ErrFormat, err)
	}
	return value, nil
}
func (s TransactionMessageSerializer) Size() int {
	return common.VariableSize
}
