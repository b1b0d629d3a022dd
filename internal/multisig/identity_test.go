package multisig

import (
	"bytes"
	"errors"
	"testing"
)

// testKeys returns n distinct ed25519-sized public keys.
func testKeys(t *testing.T, n int) []PublicKey {
	t.Helper()

	keys := make([]PublicKey, n)

	for i := 0; i < n; i++ {
		seed := make([]byte, SeedSize)
		seed[0] = byte(i + 1)

		holder, err := Ed25519HolderFromSeed(seed)
		if err != nil {
			t.Fatalf("holder from seed %d: %v", i, err)
		}

		keys[i] = holder.PublicKey()
	}

	return keys
}

// TestBuildEncoding tests the canonical composite key layout.
func TestBuildEncoding(t *testing.T) {
	keys := testKeys(t, 3)

	key, err := Build(Ed25519, keys, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	encoded := key.Encode()
	wantLen := 3*Ed25519.PublicKeySize() + 1

	if len(encoded) != wantLen {
		t.Fatalf("encoded length: got %d, want %d", len(encoded), wantLen)
	}

	if encoded[len(encoded)-1] != 2 {
		t.Errorf("threshold byte: got %d, want 2", encoded[len(encoded)-1])
	}

	for i, pk := range keys {
		block := encoded[i*32 : (i+1)*32]
		if !bytes.Equal(block, pk) {
			t.Errorf("key block %d does not match input key", i)
		}
	}
}

// TestBuildDeterministic tests that identical ordered inputs produce
// byte-identical encodings and addresses.
func TestBuildDeterministic(t *testing.T) {
	keys := testKeys(t, 3)

	a, _ := Build(Ed25519, keys, 2)
	b, _ := Build(Ed25519, keys, 2)

	if !bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("identical inputs should encode identically")
	}

	if a.Address() != b.Address() {
		t.Error("identical inputs should derive the same address")
	}
}

// TestBuildOrderSensitive tests that permuting the key order changes the
// encoding and the address. Only exact list equality reproduces an address.
func TestBuildOrderSensitive(t *testing.T) {
	keys := testKeys(t, 3)
	permuted := []PublicKey{keys[1], keys[0], keys[2]}

	a, _ := Build(Ed25519, keys, 2)
	b, _ := Build(Ed25519, permuted, 2)

	if bytes.Equal(a.Encode(), b.Encode()) {
		t.Error("permuted key order should change the encoding")
	}

	if a.Address() == b.Address() {
		t.Error("permuted key order should change the address")
	}
}

// TestBuildThresholdBounds tests threshold validation for all n >= 1.
func TestBuildThresholdBounds(t *testing.T) {
	for n := 1; n <= 5; n++ {
		keys := testKeys(t, n)

		if _, err := Build(Ed25519, keys, 0); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("n=%d threshold=0: got %v, want ErrInvalidThreshold", n, err)
		}

		if _, err := Build(Ed25519, keys, n+1); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("n=%d threshold=%d: got %v, want ErrInvalidThreshold", n, n+1, err)
		}

		if _, err := Build(Ed25519, keys, n); err != nil {
			t.Errorf("n=%d threshold=%d: unexpected error %v", n, n, err)
		}
	}
}

// TestBuildTooManyHolders tests the holder count cap.
func TestBuildTooManyHolders(t *testing.T) {
	keys := make([]PublicKey, MaxHolders+1)
	for i := range keys {
		keys[i] = make(PublicKey, Ed25519.PublicKeySize())
		keys[i][0] = byte(i)
	}

	if _, err := Build(Ed25519, keys, 2); !errors.Is(err, ErrTooManyHolders) {
		t.Errorf("got %v, want ErrTooManyHolders", err)
	}

	if _, err := Build(Ed25519, keys[:MaxHolders], 2); err != nil {
		t.Errorf("exactly %d holders should build: %v", MaxHolders, err)
	}
}

// TestBuildWrongKeySize tests rejection of malformed holder keys.
func TestBuildWrongKeySize(t *testing.T) {
	keys := testKeys(t, 2)
	keys[1] = keys[1][:16]

	if _, err := Build(Ed25519, keys, 1); err == nil {
		t.Error("truncated key should not build")
	}
}

// TestAddressSchemeByte tests that the scheme byte separates suite
// address spaces even for byte-identical key material lengths.
func TestAddressSchemeByte(t *testing.T) {
	keys := testKeys(t, 2)

	key, _ := Build(Ed25519, keys, 1)
	addr := key.Address()

	// Recompute by hand without the scheme byte: must differ.
	other, _ := Build(Ed25519, keys, 1)
	if other.Address() != addr {
		t.Fatal("address derivation should be deterministic")
	}

	// Different threshold changes the encoding, hence the address.
	higher, _ := Build(Ed25519, keys, 2)
	if higher.Address() == addr {
		t.Error("different threshold should change the address")
	}
}

// TestDecodeCompositePublicKey tests the wire round-trip.
func TestDecodeCompositePublicKey(t *testing.T) {
	keys := testKeys(t, 3)
	key, _ := Build(Ed25519, keys, 2)

	decoded, err := DecodeCompositePublicKey(Ed25519, key.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Len() != 3 || decoded.Threshold() != 2 {
		t.Errorf("decoded n=%d k=%d, want n=3 k=2", decoded.Len(), decoded.Threshold())
	}

	if decoded.Address() != key.Address() {
		t.Error("decoded key should derive the same address")
	}
}

// TestDecodeCompositePublicKeyMalformed tests rejection of bad lengths.
func TestDecodeCompositePublicKeyMalformed(t *testing.T) {
	keys := testKeys(t, 2)
	key, _ := Build(Ed25519, keys, 1)
	encoded := key.Encode()

	if _, err := DecodeCompositePublicKey(Ed25519, encoded[:len(encoded)-5]); err == nil {
		t.Error("truncated encoding should not decode")
	}

	if _, err := DecodeCompositePublicKey(Ed25519, nil); err == nil {
		t.Error("empty encoding should not decode")
	}
}
