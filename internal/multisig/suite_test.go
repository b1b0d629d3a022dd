package multisig

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

// TestSuiteLookup tests name and scheme registries.
func TestSuiteLookup(t *testing.T) {
	for _, suite := range []Suite{Ed25519, BLS} {
		byName, err := SuiteByName(suite.Name())
		if err != nil {
			t.Fatalf("by name %q: %v", suite.Name(), err)
		}

		if byName.SchemeID() != suite.SchemeID() {
			t.Errorf("name %q resolved to scheme 0x%02x", suite.Name(), byName.SchemeID())
		}

		byScheme, err := SuiteByScheme(suite.SchemeID())
		if err != nil {
			t.Fatalf("by scheme 0x%02x: %v", suite.SchemeID(), err)
		}

		if byScheme.Name() != suite.Name() {
			t.Errorf("scheme 0x%02x resolved to %q", suite.SchemeID(), byScheme.Name())
		}
	}

	if _, err := SuiteByName("rsa"); err == nil {
		t.Error("unknown suite name should fail")
	}

	if _, err := SuiteByScheme(0x7f); err == nil {
		t.Error("unknown scheme byte should fail")
	}
}

// TestEd25519HolderDeterministic tests seed-derived holders.
func TestEd25519HolderDeterministic(t *testing.T) {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}

	a, err := Ed25519HolderFromSeed(seed)
	if err != nil {
		t.Fatalf("holder from seed: %v", err)
	}

	b, _ := Ed25519HolderFromSeed(seed)

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Error("same seed should produce the same key")
	}

	if !bytes.Equal(a.Seed(), seed) {
		t.Error("seed should round-trip")
	}

	if _, err := Ed25519HolderFromSeed(seed[:16]); err == nil {
		t.Error("short seed should fail")
	}
}

// TestEd25519SignVerify tests the single-signature primitive.
func TestEd25519SignVerify(t *testing.T) {
	holder, err := GenerateEd25519Holder()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	message := []byte("hello, quorum")
	sig := holder.Sign(message)

	if len(sig) != Ed25519.SignatureSize() {
		t.Errorf("signature size: got %d, want %d", len(sig), Ed25519.SignatureSize())
	}

	if !Ed25519.Verify(sig, message, holder.PublicKey()) {
		t.Error("valid signature should verify")
	}

	if Ed25519.Verify(sig, []byte("other"), holder.PublicKey()) {
		t.Error("wrong message should not verify")
	}

	if Ed25519.Verify(sig[:32], message, holder.PublicKey()) {
		t.Error("short signature should not verify")
	}
}

// TestBLSHolderDeterministic tests seed-derived BLS holders.
func TestBLSHolderDeterministic(t *testing.T) {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(0x40 + i)
	}

	a, err := BLSHolderFromSeed(seed)
	if err != nil {
		t.Fatalf("holder from seed: %v", err)
	}

	b, _ := BLSHolderFromSeed(seed)

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Error("same seed should produce the same key")
	}

	if _, err := BLSHolderFromSeed(seed[:8]); err == nil {
		t.Error("short seed should fail")
	}
}

// TestDeriveBLSHolder tests deterministic BLS derivation from an ed25519 key.
func TestDeriveBLSHolder(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519: %v", err)
	}

	a, err := DeriveBLSHolder(priv)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	b, _ := DeriveBLSHolder(priv)

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Error("derivation should be deterministic")
	}

	message := []byte("derived key signs")
	if !BLS.Verify(a.Sign(message), message, a.PublicKey()) {
		t.Error("derived key's signature should verify")
	}
}

// TestBLSSignVerify tests the BLS single-signature primitive.
func TestBLSSignVerify(t *testing.T) {
	holder, err := GenerateBLSHolder()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	message := []byte("hello, bls")
	sig := holder.Sign(message)

	if len(sig) != BLSSignatureSize {
		t.Errorf("signature size: got %d, want %d", len(sig), BLSSignatureSize)
	}

	if !BLS.Verify(sig, message, holder.PublicKey()) {
		t.Error("valid signature should verify")
	}

	other, _ := GenerateBLSHolder()
	if BLS.Verify(sig, message, other.PublicKey()) {
		t.Error("wrong key should not verify")
	}

	corrupt := bytes.Clone(sig)
	corrupt[0] ^= 0xff
	if BLS.Verify(corrupt, message, holder.PublicKey()) {
		t.Error("corrupt signature should not verify")
	}
}
