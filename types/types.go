package types

import (
	"fmt"
	"strings"

	"github.com/0xPolygon/custody-gateway/helper/hex"
)

var (
	ZeroAddress  = Address{}
	ZeroHash     = Hash{}
	ZeroIdentity = Identity{}
)

const (
	HashLength     = 32
	AddressLength  = 20
	IdentityLength = 32
)

// Hash is a keccak-256 digest
type Hash [HashLength]byte

// Address is a recipient address on the remote network
type Address [AddressLength]byte

// Identity is an account identity on the local network. Owners, mints,
// program ids and derived record addresses are all identities.
type Identity [IdentityLength]byte

func min(i, j int) int {
	if i < j {
		return i
	}

	return j
}

func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[len(b)-min:])

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

func BytesToAddress(b []byte) Address {
	var a Address

	size := len(b)
	min := min(size, AddressLength)

	copy(a[AddressLength-min:], b[len(b)-min:])

	return a
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return hex.EncodeToHex(a[:])
}

func BytesToIdentity(b []byte) Identity {
	var id Identity

	size := len(b)
	min := min(size, IdentityLength)

	copy(id[IdentityLength-min:], b[len(b)-min:])

	return id
}

func (id Identity) Bytes() []byte {
	return id[:]
}

func (id Identity) String() string {
	return hex.EncodeToHex(id[:])
}

// IsZero returns true for the all-zero identity
func (id Identity) IsZero() bool {
	return id == ZeroIdentity
}

func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func StringToIdentity(str string) Identity {
	return BytesToIdentity(stringToBytes(str))
}

func stringToBytes(str string) []byte {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}

	b, _ := hex.DecodeHex(str)

	return b
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	*h = BytesToHash(stringToBytes(string(input)))

	return nil
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	buf := stringToBytes(string(input))
	if len(buf) != AddressLength {
		return fmt.Errorf("incorrect address length %d", len(buf))
	}

	*a = BytesToAddress(buf)

	return nil
}

// UnmarshalText parses an identity in hex syntax.
func (id *Identity) UnmarshalText(input []byte) error {
	buf := stringToBytes(string(input))
	if len(buf) != IdentityLength {
		return fmt.Errorf("incorrect identity length %d", len(buf))
	}

	*id = BytesToIdentity(buf)

	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
