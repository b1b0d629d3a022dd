package multisig

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// BLSSchemeID is the scheme byte of the multi-BLS suite.
	BLSSchemeID = 0x03

	// BLSPublicKeySize is the size of a compressed BLS public key in bytes.
	BLSPublicKeySize = 48

	// BLSSignatureSize is the size of a compressed BLS signature in bytes.
	BLSSignatureSize = 96
)

// blsDST is the domain separation tag for BLS signatures.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// BLS is the multi-BLS12-381 suite: 48-byte min-pk public keys, 96-byte
// G2 signatures.
var BLS Suite = blsSuite{}

type blsSuite struct{}

func (blsSuite) Name() string       { return "bls" }
func (blsSuite) SchemeID() byte     { return BLSSchemeID }
func (blsSuite) PublicKeySize() int { return BLSPublicKeySize }
func (blsSuite) SignatureSize() int { return BLSSignatureSize }

// Verify checks a BLS signature against a message and public key.
func (blsSuite) Verify(signature, message, publicKey []byte) bool {
	if len(signature) != BLSSignatureSize || len(publicKey) != BLSPublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, blsDST)
}

// BLSHolder holds one BLS12-381 signing keypair.
type BLSHolder struct {
	secret *blst.SecretKey // secret is the private key, never exposed
	public *blst.P1Affine  // public is the public key
	seed   [SeedSize]byte  // seed is the keygen input, kept for persistence
}

// GenerateBLSHolder creates a holder from a fresh random seed.
func GenerateBLSHolder() (*BLSHolder, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return BLSHolderFromSeed(seed[:])
}

// BLSHolderFromSeed derives a holder deterministically from a seed.
// The seed must be at least 32 bytes.
func BLSHolderFromSeed(seed []byte) (*BLSHolder, error) {
	if len(seed) < SeedSize {
		return nil, fmt.Errorf("seed must be at least %d bytes", SeedSize)
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("bls key generation failed")
	}

	h := &BLSHolder{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}
	copy(h.seed[:], seed)

	return h, nil
}

// DeriveBLSHolder derives a deterministic BLS holder from an ed25519
// private key. The BLS key is bound to the ed25519 identity via
// BLAKE3("quorumsig-bls-keygen" || seed).
func DeriveBLSHolder(privKey ed25519.PrivateKey) (*BLSHolder, error) {
	h := blake3.New()
	h.Write([]byte("quorumsig-bls-keygen"))
	h.Write(privKey.Seed())

	var derived [SeedSize]byte
	h.Sum(derived[:0])

	return BLSHolderFromSeed(derived[:])
}

// Suite returns the BLS suite.
func (h *BLSHolder) Suite() Suite {
	return BLS
}

// PublicKey returns the compressed public key bytes.
func (h *BLSHolder) PublicKey() PublicKey {
	return h.public.Compress()
}

// Sign produces a BLS partial signature over message.
func (h *BLSHolder) Sign(message []byte) PartialSignature {
	sig := new(blst.P2Affine).Sign(h.secret, message, blsDST)
	return sig.Compress()
}

// Seed returns the seed the keypair derives from. Used by the keystore to
// persist the holder; callers must treat it as private material.
func (h *BLSHolder) Seed() []byte {
	seed := make([]byte, SeedSize)
	copy(seed, h.seed[:])

	return seed
}
