package multisig

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// CompositePublicKey is the ordered aggregation of n holder public keys
// plus a threshold. The holder order is fixed for the life of the account:
// permuting it produces a different encoding and hence a different address.
type CompositePublicKey struct {
	suite     Suite       // suite is the signature suite of every holder key
	keys      []PublicKey // keys are the holder keys, in construction order
	threshold int         // threshold is the minimum signer count k
}

// Build aggregates holder public keys and a threshold into a composite
// public key. Pure and deterministic: identical ordered inputs produce
// byte-identical encodings.
func Build(suite Suite, keys []PublicKey, threshold int) (*CompositePublicKey, error) {
	if len(keys) > MaxHolders {
		return nil, fmt.Errorf("%w: got %d holders, max %d", ErrTooManyHolders, len(keys), MaxHolders)
	}

	if threshold < 1 || threshold > len(keys) {
		return nil, fmt.Errorf("%w: threshold %d with %d holders", ErrInvalidThreshold, threshold, len(keys))
	}

	size := suite.PublicKeySize()
	owned := make([]PublicKey, len(keys))

	for i, key := range keys {
		if len(key) != size {
			return nil, fmt.Errorf("public key %d: size %d, want %d", i, len(key), size)
		}

		owned[i] = make(PublicKey, size)
		copy(owned[i], key)
	}

	return &CompositePublicKey{
		suite:     suite,
		keys:      owned,
		threshold: threshold,
	}, nil
}

// BuildFromHolders aggregates the public keys of the given holders.
// All holders must share the composite's suite.
func BuildFromHolders(suite Suite, holders []KeyHolder, threshold int) (*CompositePublicKey, error) {
	keys := make([]PublicKey, len(holders))

	for i, h := range holders {
		if h.Suite().SchemeID() != suite.SchemeID() {
			return nil, fmt.Errorf("holder %d: suite %s, want %s", i, h.Suite().Name(), suite.Name())
		}

		keys[i] = h.PublicKey()
	}

	return Build(suite, keys, threshold)
}

// Suite returns the composite's signature suite.
func (c *CompositePublicKey) Suite() Suite {
	return c.suite
}

// Len returns the holder count n.
func (c *CompositePublicKey) Len() int {
	return len(c.keys)
}

// Threshold returns the minimum signer count k.
func (c *CompositePublicKey) Threshold() int {
	return c.threshold
}

// Key returns the i-th holder public key.
func (c *CompositePublicKey) Key(i int) PublicKey {
	return c.keys[i]
}

// Encode returns the canonical wire encoding: each holder key's raw bytes
// in construction order, followed by a single threshold byte.
func (c *CompositePublicKey) Encode() []byte {
	size := c.suite.PublicKeySize()
	out := make([]byte, 0, len(c.keys)*size+1)

	for _, key := range c.keys {
		out = append(out, key...)
	}

	return append(out, byte(c.threshold))
}

// DecodeCompositePublicKey parses a canonical composite key encoding.
// The holder count is inferred from the data length.
func DecodeCompositePublicKey(suite Suite, data []byte) (*CompositePublicKey, error) {
	size := suite.PublicKeySize()

	if len(data) < size+1 || (len(data)-1)%size != 0 {
		return nil, fmt.Errorf("composite key length %d does not fit %d-byte keys", len(data), size)
	}

	n := (len(data) - 1) / size
	keys := make([]PublicKey, n)

	for i := 0; i < n; i++ {
		keys[i] = PublicKey(data[i*size : (i+1)*size])
	}

	return Build(suite, keys, int(data[len(data)-1]))
}

// Address derives the account address: SHA3-256 over the canonical
// encoding concatenated with the suite's scheme byte.
func (c *CompositePublicKey) Address() Address {
	h := sha3.New256()
	h.Write(c.Encode())
	h.Write([]byte{c.suite.SchemeID()})

	var addr Address
	h.Sum(addr[:0])

	return addr
}
