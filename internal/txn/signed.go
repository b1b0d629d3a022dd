package txn

import (
	"encoding/binary"
	"fmt"

	"quorumsig/internal/multisig"
)

// maxAuthenticatorSize bounds the variable-length authenticator fields.
const maxAuthenticatorSize = 1 << 16

// SignedTransaction is a raw transaction plus the composite authenticator
// a relying party needs to verify it: the scheme byte, the composite
// public key encoding and the composite signature encoding.
type SignedTransaction struct {
	Raw       *RawTransaction // Raw is the authorized transaction
	SchemeID  byte            // SchemeID is the suite discriminator
	PublicKey []byte          // PublicKey is the encoded composite public key
	Signature []byte          // Signature is the encoded composite signature
}

// NewSignedTransaction assembles the submission envelope from the core's
// artifacts.
func NewSignedTransaction(raw *RawTransaction, key *multisig.CompositePublicKey, sig *multisig.CompositeSignature) *SignedTransaction {
	return &SignedTransaction{
		Raw:       raw,
		SchemeID:  key.Suite().SchemeID(),
		PublicKey: key.Encode(),
		Signature: sig.Encode(),
	}
}

// Encode returns the wire envelope. Byte layout:
// [raw transaction] [1B scheme] [4B BE keyLen] [key] [4B BE sigLen] [sig]
func (s *SignedTransaction) Encode() []byte {
	raw := s.Raw.Encode()

	buf := make([]byte, 0, len(raw)+1+4+len(s.PublicKey)+4+len(s.Signature))
	buf = append(buf, raw...)
	buf = append(buf, s.SchemeID)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.PublicKey)))
	buf = append(buf, s.PublicKey...)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.Signature)))
	buf = append(buf, s.Signature...)

	return buf
}

// DecodeSignedTransaction parses a wire envelope.
func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	if len(data) < rawTransactionSize+1+4 {
		return nil, fmt.Errorf("signed transaction too short: %d bytes", len(data))
	}

	raw, err := DecodeRawTransaction(data[:rawTransactionSize])
	if err != nil {
		return nil, fmt.Errorf("decode raw transaction:\n%w", err)
	}

	s := &SignedTransaction{Raw: raw, SchemeID: data[rawTransactionSize]}
	rest := data[rawTransactionSize+1:]

	s.PublicKey, rest, err = readChunk(rest)
	if err != nil {
		return nil, fmt.Errorf("read public key:\n%w", err)
	}

	s.Signature, rest, err = readChunk(rest)
	if err != nil {
		return nil, fmt.Errorf("read signature:\n%w", err)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing bytes: %d", len(rest))
	}

	return s, nil
}

// Verify runs the relying party's check: decode the composite key and
// signature from the envelope and verify them over the raw transaction's
// signing message.
func (s *SignedTransaction) Verify() error {
	suite, err := multisig.SuiteByScheme(s.SchemeID)
	if err != nil {
		return err
	}

	key, err := multisig.DecodeCompositePublicKey(suite, s.PublicKey)
	if err != nil {
		return fmt.Errorf("decode composite key:\n%w", err)
	}

	return multisig.VerifyEncoded(key, s.Signature, s.Raw.SigningMessage())
}

// readChunk reads one 4-byte length-prefixed field and returns the rest.
func readChunk(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("chunk header truncated: %d bytes", len(data))
	}

	length := binary.BigEndian.Uint32(data[:4])

	if length > maxAuthenticatorSize {
		return nil, nil, fmt.Errorf("chunk too large: %d > %d", length, maxAuthenticatorSize)
	}

	if uint32(len(data)-4) < length {
		return nil, nil, fmt.Errorf("chunk truncated: need %d, have %d", length, len(data)-4)
	}

	chunk := make([]byte, length)
	copy(chunk, data[4:4+length])

	return chunk, data[4+length:], nil
}
