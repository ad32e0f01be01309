package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the raw address length in bytes.
const AddressLen = 32

// Address identifies an account. Addresses are opaque 32-byte values
// rendered as base58 text.
type Address [AddressLen]byte

// ZeroAddress is the null identity. Transfers to or from it are rejected.
var ZeroAddress = Address{}

// BurnAddress is the canonical non-recoverable sink. Value routed here is
// considered permanently removed from circulation; nothing ever debits it.
var BurnAddress = Address{
	0xde, 0xad, 0xde, 0xad, 0xde, 0xad, 0xde, 0xad,
	0xde, 0xad, 0xde, 0xad, 0xde, 0xad, 0xde, 0xad,
	0xde, 0xad, 0xde, 0xad, 0xde, 0xad, 0xde, 0xad,
	0xde, 0xad, 0xde, 0xad, 0xde, 0xad, 0xde, 0xad,
}

// ParseAddress decodes a base58 address string.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != AddressLen {
		return ZeroAddress, fmt.Errorf("decode address: expected %d bytes, got %d", AddressLen, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// AddressFromPubKey builds an address from an ed25519 public key,
// rejecting byte strings that are not valid curve points.
func AddressFromPubKey(pub []byte) (Address, error) {
	if len(pub) != AddressLen {
		return ZeroAddress, fmt.Errorf("public key: expected %d bytes, got %d", AddressLen, len(pub))
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return ZeroAddress, fmt.Errorf("public key not on curve: %w", err)
	}
	var a Address
	copy(a[:], pub)
	return a, nil
}

// IsZero reports whether the address is the null identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the address as base58.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
