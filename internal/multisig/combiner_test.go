package multisig

import (
	"bytes"
	"errors"
	"testing"
)

// testPartial returns a fixed-size fake partial for combiner tests; the
// combiner does not validate signature values, only the verifier does.
func testPartial(fill byte) PartialSignature {
	sig := make(PartialSignature, Ed25519.SignatureSize())
	for i := range sig {
		sig[i] = fill
	}

	return sig
}

// TestCombineCanonical tests that input order does not affect the output bytes.
func TestCombineCanonical(t *testing.T) {
	a := IndexedSignature{Index: 0, Signature: testPartial(0xaa)}
	b := IndexedSignature{Index: 2, Signature: testPartial(0xbb)}

	first, err := Combine([]IndexedSignature{a, b}, 3, 2)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}

	second, err := Combine([]IndexedSignature{b, a}, 3, 2)
	if err != nil {
		t.Fatalf("combine reversed: %v", err)
	}

	if !bytes.Equal(first.Encode(), second.Encode()) {
		t.Error("combiners given the same set in different order should agree byte for byte")
	}

	indices := first.SignerIndices()
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("signer indices: got %v, want [0 2]", indices)
	}
}

// TestCombineDuplicateIndex tests rejection of a repeated holder index.
func TestCombineDuplicateIndex(t *testing.T) {
	partials := []IndexedSignature{
		{Index: 1, Signature: testPartial(1)},
		{Index: 1, Signature: testPartial(2)},
	}

	if _, err := Combine(partials, 3, 2); !errors.Is(err, ErrDuplicateIndex) {
		t.Errorf("got %v, want ErrDuplicateIndex", err)
	}
}

// TestCombineIndexOutOfRange tests rejection of out-of-range indices.
func TestCombineIndexOutOfRange(t *testing.T) {
	cases := []int{-1, 3, 7}

	for _, idx := range cases {
		partials := []IndexedSignature{
			{Index: 0, Signature: testPartial(1)},
			{Index: idx, Signature: testPartial(2)},
		}

		if _, err := Combine(partials, 3, 2); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("index %d: got %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

// TestCombineInsufficient tests the distinct-index count check.
func TestCombineInsufficient(t *testing.T) {
	partials := []IndexedSignature{{Index: 0, Signature: testPartial(1)}}

	if _, err := Combine(partials, 3, 2); !errors.Is(err, ErrInsufficientSignatures) {
		t.Errorf("got %v, want ErrInsufficientSignatures", err)
	}

	if _, err := Combine(nil, 3, 1); !errors.Is(err, ErrInsufficientSignatures) {
		t.Errorf("empty set: got %v, want ErrInsufficientSignatures", err)
	}
}

// TestCombineInvalidThreshold tests rejection of nonsense thresholds,
// which would otherwise let any partial set pass the count check.
func TestCombineInvalidThreshold(t *testing.T) {
	partials := []IndexedSignature{{Index: 0, Signature: testPartial(1)}}

	for _, threshold := range []int{0, -1, 4} {
		if _, err := Combine(partials, 3, threshold); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %d: got %v, want ErrInvalidThreshold", threshold, err)
		}
	}
}

// TestCombineOvercollection tests that more than threshold partials is legal.
func TestCombineOvercollection(t *testing.T) {
	partials := []IndexedSignature{
		{Index: 0, Signature: testPartial(1)},
		{Index: 1, Signature: testPartial(2)},
		{Index: 2, Signature: testPartial(3)},
	}

	sig, err := Combine(partials, 3, 2)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}

	if got := len(sig.SignerIndices()); got != 3 {
		t.Errorf("signer count: got %d, want 3", got)
	}
}

// TestBitmapLayout tests bitmap building and parsing across widths.
func TestBitmapLayout(t *testing.T) {
	tests := []struct {
		indices []int
		n       int
	}{
		{[]int{0}, 8},
		{[]int{7}, 8},
		{[]int{0, 1, 2}, 8},
		{[]int{0, 7}, 8},
		{[]int{0, 8, 15}, 16},
		{[]int{0, 2, 4, 6, 8, 10}, 12},
		{[]int{31}, 32},
		{[]int{}, 8},
	}

	for _, tc := range tests {
		bitmap := buildBitmap(tc.indices, tc.n)

		if want := (tc.n + 7) / 8; len(bitmap) != want {
			t.Errorf("bitmap size for n=%d: got %d, want %d", tc.n, len(bitmap), want)
		}

		parsed := bitmapIndices(bitmap)
		if len(parsed) != len(tc.indices) {
			t.Errorf("parsed %v, want %v", parsed, tc.indices)
			continue
		}

		for i, idx := range tc.indices {
			if parsed[i] != idx {
				t.Errorf("parsed[%d] = %d, want %d", i, parsed[i], idx)
			}
		}

		if popcount(bitmap) != len(tc.indices) {
			t.Errorf("popcount: got %d, want %d", popcount(bitmap), len(tc.indices))
		}
	}
}

// TestCompositeSignatureRoundTrip tests the wire encode/decode pair.
func TestCompositeSignatureRoundTrip(t *testing.T) {
	partials := []IndexedSignature{
		{Index: 1, Signature: testPartial(0x11)},
		{Index: 2, Signature: testPartial(0x22)},
	}

	sig, err := Combine(partials, 3, 2)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}

	decoded, err := DecodeCompositeSignature(Ed25519, 3, sig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !bytes.Equal(decoded.Encode(), sig.Encode()) {
		t.Error("round trip should preserve bytes")
	}
}

// TestDecodeCompositeSignatureMalformed tests wire-level rejection cases.
func TestDecodeCompositeSignatureMalformed(t *testing.T) {
	sig, _ := Combine([]IndexedSignature{
		{Index: 0, Signature: testPartial(1)},
		{Index: 1, Signature: testPartial(2)},
	}, 3, 2)
	encoded := sig.Encode()

	// Truncated signature block.
	if _, err := DecodeCompositeSignature(Ed25519, 3, encoded[:len(encoded)-1]); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("truncated: got %v, want ErrMalformedSignature", err)
	}

	// Trailing garbage.
	if _, err := DecodeCompositeSignature(Ed25519, 3, append(bytes.Clone(encoded), 0x00)); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("trailing byte: got %v, want ErrMalformedSignature", err)
	}

	// Bit set beyond the holder count.
	bad := bytes.Clone(encoded)
	bad[0] |= 1 << 5
	if _, err := DecodeCompositeSignature(Ed25519, 3, bad); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("out-of-range bit: got %v, want ErrMalformedSignature", err)
	}

	// Shorter than the bitmap itself.
	if _, err := DecodeCompositeSignature(Ed25519, 32, []byte{0x01}); !errors.Is(err, ErrMalformedSignature) {
		t.Errorf("short bitmap: got %v, want ErrMalformedSignature", err)
	}
}
