package multisig

import (
	"errors"
	"fmt"
)

// Error taxonomy for composite key construction, combination and
// verification. All of these indicate a logic or data error in the
// caller's inputs; none are transient.
var (
	// ErrInvalidThreshold means the threshold is below 1 or above the holder count.
	ErrInvalidThreshold = errors.New("multisig: invalid threshold")

	// ErrTooManyHolders means the holder count exceeds MaxHolders.
	ErrTooManyHolders = errors.New("multisig: too many holders")

	// ErrDuplicateIndex means the same holder index was supplied twice.
	ErrDuplicateIndex = errors.New("multisig: duplicate holder index")

	// ErrIndexOutOfRange means a holder index is negative or >= the holder count.
	ErrIndexOutOfRange = errors.New("multisig: holder index out of range")

	// ErrInsufficientSignatures means fewer distinct partials than the threshold.
	ErrInsufficientSignatures = errors.New("multisig: insufficient partial signatures")

	// ErrMalformedSignature means the composite signature bytes are inconsistent.
	ErrMalformedSignature = errors.New("multisig: malformed composite signature")

	// ErrThresholdNotMet means the bitmap carries fewer signers than the threshold.
	ErrThresholdNotMet = errors.New("multisig: threshold not met")
)

// InvalidSignatureError reports the first included partial signature that
// failed individual verification. One bad partial rejects the whole
// composite, even when enough other valid partials are present.
type InvalidSignatureError struct {
	Index int // Index is the holder index of the failing partial
}

// Error implements the error interface.
func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("multisig: invalid partial signature from holder %d", e.Index)
}
