package index

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
	"github.com/merkledger/merkledger/storage"
)

// Suffixes separating the cells of one index within its address space.
// The address prefix is prefix-free, so the cells of distinct indices
// can never collide.
const (
	metaSuffix byte = 0x00 // single metadata cell (list length, entry value)
	dataSuffix byte = 0x01 // the element key space
)

// base carries what every index implementation needs: its address, the
// view it reads from, and the derived raw key prefix. Index objects are
// cheap facades over the view; they hold no own state and must not
// outlive it.
type base struct {
	address Address
	view    storage.View
	prefix  []byte
}

func newBase(address Address, view storage.View) base {
	return base{
		address: address,
		view:    view,
		prefix:  address.KeyPrefix(),
	}
}

// Address returns the address the index was constructed with.
func (b *base) Address() Address {
	return b.address
}

func (b *base) metaKey() []byte {
	key := make([]byte, 0, len(b.prefix)+1)
	return append(append(key, b.prefix...), metaSuffix)
}

func (b *base) dataPrefix() []byte {
	key := make([]byte, 0, len(b.prefix)+1)
	return append(append(key, b.prefix...), dataSuffix)
}

func (b *base) dataKey(suffix []byte) []byte {
	key := make([]byte, 0, len(b.prefix)+1+len(suffix))
	key = append(append(key, b.prefix...), dataSuffix)
	return append(key, suffix...)
}

// writer provides the mutation surface of the underlying view, or an
// ErrState failure when the index was built over a read-only snapshot.
func (b *base) writer() (storage.Writer, error) {
	if w, ok := b.view.(storage.Writer); ok {
		return w, nil
	}
	return nil, fmt.Errorf("%w: index %s is backed by a read-only view", common.ErrState, b.address)
}
