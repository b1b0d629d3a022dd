package multisig

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

const (
	// Ed25519SchemeID is the scheme byte of the multi-ed25519 suite.
	Ed25519SchemeID = 0x01

	// SeedSize is the size of a holder key seed in bytes.
	SeedSize = ed25519.SeedSize
)

// Ed25519 is the multi-ed25519 suite: 32-byte keys, 64-byte signatures.
// This is the reference suite.
var Ed25519 Suite = ed25519Suite{}

type ed25519Suite struct{}

func (ed25519Suite) Name() string       { return "ed25519" }
func (ed25519Suite) SchemeID() byte     { return Ed25519SchemeID }
func (ed25519Suite) PublicKeySize() int { return ed25519.PublicKeySize }
func (ed25519Suite) SignatureSize() int { return ed25519.SignatureSize }

// Verify checks an ed25519 signature against a message and public key.
func (ed25519Suite) Verify(signature, message, publicKey []byte) bool {
	if len(signature) != ed25519.SignatureSize || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// Ed25519Holder holds one ed25519 signing keypair.
type Ed25519Holder struct {
	priv ed25519.PrivateKey // priv is the private key, never exposed
	pub  ed25519.PublicKey  // pub is the public key
}

// GenerateEd25519Holder creates a holder with a fresh random keypair.
func GenerateEd25519Holder() (*Ed25519Holder, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key:\n%w", err)
	}

	return &Ed25519Holder{priv: priv, pub: pub}, nil
}

// Ed25519HolderFromSeed derives a holder deterministically from a 32-byte seed.
func Ed25519HolderFromSeed(seed []byte) (*Ed25519Holder, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed size: got %d, want %d", len(seed), SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	return &Ed25519Holder{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// Suite returns the ed25519 suite.
func (h *Ed25519Holder) Suite() Suite {
	return Ed25519
}

// PublicKey returns the holder's verification key.
func (h *Ed25519Holder) PublicKey() PublicKey {
	pk := make(PublicKey, len(h.pub))
	copy(pk, h.pub)

	return pk
}

// Sign produces an ed25519 partial signature over message.
func (h *Ed25519Holder) Sign(message []byte) PartialSignature {
	return ed25519.Sign(h.priv, message)
}

// Seed returns the 32-byte seed the keypair derives from. Used by the
// keystore to persist the holder; callers must treat it as private material.
func (h *Ed25519Holder) Seed() []byte {
	return h.priv.Seed()
}
