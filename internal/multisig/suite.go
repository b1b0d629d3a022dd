// Package multisig implements a k-of-n threshold signature scheme: n
// independent key holders share one joint account, and any k of them can
// authorize an action by each signing the same message. The composite
// public key, derived address, composite signature and verification
// predicate all have fixed byte layouts so that independently written
// implementations interoperate.
package multisig

import (
	"encoding/hex"
	"fmt"
)

// MaxHolders is the maximum number of key holders in one composite key,
// one presence bit per holder.
const MaxHolders = 32

// AddressSize is the size of a derived account address in bytes.
const AddressSize = 32

// PublicKey is one holder's verification key, fixed-length per suite.
type PublicKey []byte

// PartialSignature is one holder's signature over the shared message,
// fixed-length per suite.
type PartialSignature []byte

// Address is the account address derived from a composite public key.
type Address [AddressSize]byte

// String returns the address as lowercase hex.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// AddressFromHex parses a 64-char hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var addr Address

	b, err := hex.DecodeString(s)
	if err != nil || len(b) != AddressSize {
		return addr, fmt.Errorf("invalid address hex: %q", s)
	}

	copy(addr[:], b)

	return addr, nil
}

// Suite describes one underlying single-signature primitive. The scheme
// byte discriminates suites in the derived address and on the wire.
type Suite interface {
	// Name returns the suite's short name ("ed25519", "bls").
	Name() string

	// SchemeID returns the scheme discriminator byte.
	SchemeID() byte

	// PublicKeySize returns the fixed public key size in bytes.
	PublicKeySize() int

	// SignatureSize returns the fixed signature size in bytes.
	SignatureSize() int

	// Verify checks one holder's signature over message.
	Verify(signature, message, publicKey []byte) bool
}

// KeyHolder wraps one signing keypair of a suite. Implementations never
// expose private material outside Sign; any byte string is signable.
type KeyHolder interface {
	// Suite returns the holder's signature suite.
	Suite() Suite

	// PublicKey returns the holder's verification key.
	PublicKey() PublicKey

	// Sign produces a partial signature over message.
	Sign(message []byte) PartialSignature
}

// SuiteByName returns the suite registered under the given name.
func SuiteByName(name string) (Suite, error) {
	switch name {
	case Ed25519.Name():
		return Ed25519, nil
	case BLS.Name():
		return BLS, nil
	default:
		return nil, fmt.Errorf("unknown suite: %q", name)
	}
}

// SuiteByScheme returns the suite with the given scheme byte.
func SuiteByScheme(id byte) (Suite, error) {
	switch id {
	case Ed25519.SchemeID():
		return Ed25519, nil
	case BLS.SchemeID():
		return BLS, nil
	default:
		return nil, fmt.Errorf("unknown scheme: 0x%02x", id)
	}
}
