// Package index implements the typed persistent collections of the
// storage layer: lists, maps, key sets, entries, and their
// proof-carrying variants, all backed by a raw key-value View.
package index

import (
	"fmt"

	"github.com/merkledger/merkledger/common"
)

// component lengths are encoded in a single byte
const maxComponentLength = 255

// Address identifies a named index, optionally scoped to a group by a
// binary discriminator. Distinct addresses never produce overlapping
// raw key prefixes.
type Address struct {
	name    string
	groupID []byte
}

// NewAddress creates the address of a stand-alone index.
func NewAddress(name string) (Address, error) {
	if err := checkComponent("index name", len(name)); err != nil {
		return Address{}, err
	}
	return Address{name: name}, nil
}

// NewGroupAddress creates the address of one member of an index group:
// indices sharing a name but distinguished by a binary group id.
func NewGroupAddress(name string, groupID []byte) (Address, error) {
	if err := checkComponent("index name", len(name)); err != nil {
		return Address{}, err
	}
	if err := checkComponent("group id", len(groupID)); err != nil {
		return Address{}, err
	}
	return Address{name: name, groupID: append([]byte(nil), groupID...)}, nil
}

func checkComponent(what string, length int) error {
	if length == 0 {
		return fmt.Errorf("%w: %s must not be empty", common.ErrArgument, what)
	}
	if length > maxComponentLength {
		return fmt.Errorf("%w: %s exceeds %d bytes", common.ErrArgument, what, maxComponentLength)
	}
	return nil
}

// Name returns the index name.
func (a Address) Name() string {
	return a.name
}

// GroupID returns the group discriminator, or nil for a stand-alone
// index.
func (a Address) GroupID() []byte {
	return append([]byte(nil), a.groupID...)
}

// InGroup reports whether the address is scoped to a group.
func (a Address) InGroup() bool {
	return a.groupID != nil
}

func (a Address) String() string {
	if a.InGroup() {
		return fmt.Sprintf("%s[%x]", a.name, a.groupID)
	}
	return a.name
}

// KeyPrefix derives the canonical raw key prefix of the address. Every
// component is length-prefixed and the group marker byte separates
// grouped from plain addresses, so the encoding is prefix-free: no
// address prefix is a prefix of another address, whatever the group id
// bytes are.
func (a Address) KeyPrefix() []byte {
	prefix := make([]byte, 0, len(a.name)+len(a.groupID)+3)
	prefix = append(prefix, byte(len(a.name)))
	prefix = append(prefix, a.name...)
	if a.groupID == nil {
		return append(prefix, 0x00)
	}
	prefix = append(prefix, 0x01, byte(len(a.groupID)))
	return append(prefix, a.groupID...)
}
