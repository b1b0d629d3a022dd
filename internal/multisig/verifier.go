package multisig

import "fmt"

// Verify checks a composite signature over message against a composite
// public key. Returns nil only when the bitmap is consistent, the signer
// count reaches the threshold, and every included partial verifies
// against its holder's key. Pure and deterministic: identical inputs
// always yield the identical verdict.
//
// The policy is all-or-nothing: one invalid partial rejects the whole
// composite even when enough other valid partials are present, because a
// composite signature is a single artifact, not independently reducible
// evidence.
func Verify(key *CompositePublicKey, sig *CompositeSignature, message []byte) error {
	n := key.Len()
	suite := key.Suite()

	if len(sig.Bitmap) != (n+7)/8 {
		return fmt.Errorf("%w: bitmap %d bytes, want %d", ErrMalformedSignature, len(sig.Bitmap), (n+7)/8)
	}

	indices := bitmapIndices(sig.Bitmap)

	if len(indices) != len(sig.Signatures) {
		return fmt.Errorf("%w: bitmap claims %d signers, %d signatures present",
			ErrMalformedSignature, len(indices), len(sig.Signatures))
	}

	for _, idx := range indices {
		if idx >= n {
			return fmt.Errorf("%w: bit %d set with %d holders", ErrMalformedSignature, idx, n)
		}
	}

	sigSize := suite.SignatureSize()

	for i, partial := range sig.Signatures {
		if len(partial) != sigSize {
			return fmt.Errorf("%w: signature %d is %d bytes, want %d",
				ErrMalformedSignature, i, len(partial), sigSize)
		}
	}

	if len(indices) < key.Threshold() {
		return fmt.Errorf("%w: %d signers, threshold %d", ErrThresholdNotMet, len(indices), key.Threshold())
	}

	for i, idx := range indices {
		if !suite.Verify(sig.Signatures[i], message, key.Key(idx)) {
			return &InvalidSignatureError{Index: idx}
		}
	}

	return nil
}

// VerifyEncoded decodes a wire-format composite signature and verifies it.
// For relying parties that receive the artifact as raw bytes.
func VerifyEncoded(key *CompositePublicKey, signature, message []byte) error {
	sig, err := DecodeCompositeSignature(key.Suite(), key.Len(), signature)
	if err != nil {
		return err
	}

	return Verify(key, sig, message)
}
