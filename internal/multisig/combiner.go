package multisig

import (
	"fmt"
	"math/bits"
	"sort"
)

// IndexedSignature pairs a partial signature with its holder index.
type IndexedSignature struct {
	Index     int              // Index is the holder's position in the composite key
	Signature PartialSignature // Signature is the holder's partial signature
}

// CompositeSignature is an n-bit presence bitmap followed by the included
// partial signatures in ascending holder index order.
type CompositeSignature struct {
	Bitmap     []byte             // Bitmap has bit i set iff holder i's partial is included
	Signatures []PartialSignature // Signatures are the included partials, ascending by index
}

// Combine builds a composite signature from index-tagged partials. n is
// the holder count of the composite key the signature will be verified
// against. Input order is irrelevant: the output is canonical, so two
// combiners given the same logical set produce byte-identical results.
// Collecting more than threshold partials is legal.
func Combine(partials []IndexedSignature, n, threshold int) (*CompositeSignature, error) {
	if n < 1 || n > MaxHolders {
		return nil, fmt.Errorf("%w: got %d holders, max %d", ErrTooManyHolders, n, MaxHolders)
	}

	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("%w: threshold %d with %d holders", ErrInvalidThreshold, threshold, n)
	}

	sorted := make([]IndexedSignature, len(partials))
	copy(sorted, partials)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	seen := -1

	for _, p := range sorted {
		if p.Index < 0 || p.Index >= n {
			return nil, fmt.Errorf("%w: holder index %d with %d holders", ErrIndexOutOfRange, p.Index, n)
		}

		if p.Index == seen {
			return nil, fmt.Errorf("%w: holder index %d", ErrDuplicateIndex, p.Index)
		}

		seen = p.Index
	}

	if len(sorted) < threshold {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientSignatures, len(sorted), threshold)
	}

	indices := make([]int, len(sorted))
	sigs := make([]PartialSignature, len(sorted))

	for i, p := range sorted {
		indices[i] = p.Index
		sigs[i] = make(PartialSignature, len(p.Signature))
		copy(sigs[i], p.Signature)
	}

	return &CompositeSignature{
		Bitmap:     buildBitmap(indices, n),
		Signatures: sigs,
	}, nil
}

// SignerIndices returns the holder indices set in the bitmap, ascending.
func (s *CompositeSignature) SignerIndices() []int {
	return bitmapIndices(s.Bitmap)
}

// Encode returns the canonical wire encoding: bitmap bytes followed by
// the included partial signatures.
func (s *CompositeSignature) Encode() []byte {
	size := len(s.Bitmap)
	for _, sig := range s.Signatures {
		size += len(sig)
	}

	out := make([]byte, 0, size)
	out = append(out, s.Bitmap...)

	for _, sig := range s.Signatures {
		out = append(out, sig...)
	}

	return out
}

// DecodeCompositeSignature parses a composite signature produced for a
// composite key with n holders of the given suite. The data length must
// match the bitmap's popcount exactly.
func DecodeCompositeSignature(suite Suite, n int, data []byte) (*CompositeSignature, error) {
	bitmapLen := (n + 7) / 8

	if len(data) < bitmapLen {
		return nil, fmt.Errorf("%w: %d bytes, bitmap needs %d", ErrMalformedSignature, len(data), bitmapLen)
	}

	bitmap := make([]byte, bitmapLen)
	copy(bitmap, data[:bitmapLen])

	for _, idx := range bitmapIndices(bitmap) {
		if idx >= n {
			return nil, fmt.Errorf("%w: bit %d set with %d holders", ErrMalformedSignature, idx, n)
		}
	}

	count := popcount(bitmap)
	sigSize := suite.SignatureSize()

	if len(data) != bitmapLen+count*sigSize {
		return nil, fmt.Errorf("%w: %d bytes for %d signatures", ErrMalformedSignature, len(data), count)
	}

	sigs := make([]PartialSignature, count)

	for i := 0; i < count; i++ {
		offset := bitmapLen + i*sigSize
		sigs[i] = make(PartialSignature, sigSize)
		copy(sigs[i], data[offset:offset+sigSize])
	}

	return &CompositeSignature{Bitmap: bitmap, Signatures: sigs}, nil
}

// buildBitmap creates a presence bitmap of ceil(n/8) bytes with the given
// holder indices set. Bit i lives at byte i/8, position i%8.
func buildBitmap(indices []int, n int) []byte {
	bitmap := make([]byte, (n+7)/8)

	for _, idx := range indices {
		if idx >= 0 && idx < n {
			bitmap[idx/8] |= 1 << (idx % 8)
		}
	}

	return bitmap
}

// bitmapIndices extracts the set holder indices from a bitmap, ascending.
func bitmapIndices(bitmap []byte) []int {
	var indices []int

	for byteIdx, b := range bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				indices = append(indices, byteIdx*8+bit)
			}
		}
	}

	return indices
}

// popcount returns the number of set bits in the bitmap.
func popcount(bitmap []byte) int {
	count := 0

	for _, b := range bitmap {
		count += bits.OnesCount8(b)
	}

	return count
}
