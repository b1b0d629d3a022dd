// Package txn defines the transaction container whose canonical bytes the
// signing core authorizes. The core treats the signing message as opaque;
// everything here stays outside the signature scheme itself.
package txn

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"quorumsig/internal/multisig"
)

// rawTransactionSize is the canonical encoded size of a RawTransaction.
const rawTransactionSize = 32 + 8 + 32 + 8 + 8 + 8 + 8 + 1

// signingDomain separates transaction signatures from any other use of
// the holder keys.
const signingDomain = "quorumsig::raw_transaction"

// signingPrefix is SHA3-256 of the signing domain, prepended to the
// canonical bytes before signing.
var signingPrefix = sha3.Sum256([]byte(signingDomain))

// Transfer moves an amount from the sending account to a recipient.
type Transfer struct {
	Recipient multisig.Address // Recipient is the receiving account address
	Amount    uint64           // Amount is the transferred amount in base units
}

// RawTransaction is an unauthorized transaction from a sending account.
type RawTransaction struct {
	Sender              multisig.Address // Sender is the authorizing account address
	SequenceNumber      uint64           // SequenceNumber is the account's next sequence
	Payload             Transfer         // Payload is the transfer being authorized
	MaxGasAmount        uint64           // MaxGasAmount caps execution gas
	GasUnitPrice        uint64           // GasUnitPrice is the price per gas unit
	ExpirationTimestamp uint64           // ExpirationTimestamp is a unix deadline in seconds
	ChainID             uint8            // ChainID binds the transaction to one chain
}

// Encode returns the canonical fixed-layout encoding. All integers are
// little-endian. Byte layout:
// [32B sender] [8B sequence] [32B recipient] [8B amount]
// [8B maxGas] [8B gasUnitPrice] [8B expiration] [1B chainID]
func (t *RawTransaction) Encode() []byte {
	buf := make([]byte, rawTransactionSize)

	copy(buf[0:32], t.Sender[:])
	binary.LittleEndian.PutUint64(buf[32:40], t.SequenceNumber)
	copy(buf[40:72], t.Payload.Recipient[:])
	binary.LittleEndian.PutUint64(buf[72:80], t.Payload.Amount)
	binary.LittleEndian.PutUint64(buf[80:88], t.MaxGasAmount)
	binary.LittleEndian.PutUint64(buf[88:96], t.GasUnitPrice)
	binary.LittleEndian.PutUint64(buf[96:104], t.ExpirationTimestamp)
	buf[104] = t.ChainID

	return buf
}

// DecodeRawTransaction parses the canonical encoding.
func DecodeRawTransaction(data []byte) (*RawTransaction, error) {
	if len(data) != rawTransactionSize {
		return nil, fmt.Errorf("raw transaction size: got %d, want %d", len(data), rawTransactionSize)
	}

	t := &RawTransaction{
		SequenceNumber:      binary.LittleEndian.Uint64(data[32:40]),
		MaxGasAmount:        binary.LittleEndian.Uint64(data[80:88]),
		GasUnitPrice:        binary.LittleEndian.Uint64(data[88:96]),
		ExpirationTimestamp: binary.LittleEndian.Uint64(data[96:104]),
		ChainID:             data[104],
	}

	copy(t.Sender[:], data[0:32])
	copy(t.Payload.Recipient[:], data[40:72])
	t.Payload.Amount = binary.LittleEndian.Uint64(data[72:80])

	return t, nil
}

// SigningMessage returns the bytes every holder signs: the domain prefix
// followed by the canonical encoding. This is the Message of the scheme.
func (t *RawTransaction) SigningMessage() []byte {
	encoded := t.Encode()

	msg := make([]byte, 0, len(signingPrefix)+len(encoded))
	msg = append(msg, signingPrefix[:]...)

	return append(msg, encoded...)
}

// Hash returns the transaction id: BLAKE3 of the signing message.
func (t *RawTransaction) Hash() [32]byte {
	return blake3.Sum256(t.SigningMessage())
}
