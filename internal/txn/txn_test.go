package txn

import (
	"bytes"
	"testing"

	"quorumsig/internal/multisig"
)

// sampleRaw returns a filled-in raw transaction for tests.
func sampleRaw() *RawTransaction {
	var sender, recipient multisig.Address
	sender[0] = 0xaa
	recipient[0] = 0xbb

	return &RawTransaction{
		Sender:              sender,
		SequenceNumber:      7,
		Payload:             Transfer{Recipient: recipient, Amount: 100},
		MaxGasAmount:        2000,
		GasUnitPrice:        100,
		ExpirationTimestamp: 1_900_000_000,
		ChainID:             4,
	}
}

// TestRawTransactionRoundTrip tests the canonical encoding.
func TestRawTransactionRoundTrip(t *testing.T) {
	raw := sampleRaw()
	encoded := raw.Encode()

	if len(encoded) != rawTransactionSize {
		t.Fatalf("encoded size: got %d, want %d", len(encoded), rawTransactionSize)
	}

	decoded, err := DecodeRawTransaction(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if *decoded != *raw {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", decoded, raw)
	}

	if _, err := DecodeRawTransaction(encoded[:50]); err == nil {
		t.Error("truncated encoding should not decode")
	}
}

// TestSigningMessageDomain tests that the signing message is prefixed and
// deterministic, and that any field change alters it.
func TestSigningMessageDomain(t *testing.T) {
	raw := sampleRaw()
	msg := raw.SigningMessage()

	if len(msg) != 32+rawTransactionSize {
		t.Fatalf("signing message size: got %d, want %d", len(msg), 32+rawTransactionSize)
	}

	if bytes.Equal(msg[:32], raw.Encode()[:32]) {
		t.Error("signing message should start with the domain prefix, not the sender")
	}

	if !bytes.Equal(msg, raw.SigningMessage()) {
		t.Error("signing message should be deterministic")
	}

	changed := sampleRaw()
	changed.Payload.Amount = 101

	if bytes.Equal(changed.SigningMessage(), msg) {
		t.Error("changing the amount should change the signing message")
	}

	if changed.Hash() == raw.Hash() {
		t.Error("changing the amount should change the hash")
	}
}

// TestSignedTransactionEnvelope tests the submission envelope round trip
// and the relying party's verification path.
func TestSignedTransactionEnvelope(t *testing.T) {
	holders := make([]multisig.KeyHolder, 3)
	for i := range holders {
		h, err := multisig.GenerateEd25519Holder()
		if err != nil {
			t.Fatalf("generate holder %d: %v", i, err)
		}
		holders[i] = h
	}

	key, err := multisig.BuildFromHolders(multisig.Ed25519, holders, 2)
	if err != nil {
		t.Fatalf("build key: %v", err)
	}

	raw := sampleRaw()
	raw.Sender = key.Address()
	message := raw.SigningMessage()

	sig, err := multisig.Combine([]multisig.IndexedSignature{
		{Index: 0, Signature: holders[0].Sign(message)},
		{Index: 1, Signature: holders[1].Sign(message)},
	}, key.Len(), key.Threshold())
	if err != nil {
		t.Fatalf("combine: %v", err)
	}

	signed := NewSignedTransaction(raw, key, sig)
	encoded := signed.Encode()

	decoded, err := DecodeSignedTransaction(encoded)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}

	if err := decoded.Verify(); err != nil {
		t.Errorf("relying party verification: %v", err)
	}

	// Tamper with the amount after signing: verification must fail.
	tampered, err := DecodeSignedTransaction(encoded)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	tampered.Raw.Payload.Amount = 1_000_000

	if err := tampered.Verify(); err == nil {
		t.Error("tampered payload should not verify")
	}

	// Truncated envelope.
	if _, err := DecodeSignedTransaction(encoded[:len(encoded)-3]); err == nil {
		t.Error("truncated envelope should not decode")
	}

	// Trailing garbage.
	if _, err := DecodeSignedTransaction(append(bytes.Clone(encoded), 0xff)); err == nil {
		t.Error("trailing bytes should not decode")
	}
}
