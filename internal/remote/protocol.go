// Package remote lets a coordinator collect partial signatures from key
// holders running on other machines. Holders expose a small QUIC signer
// endpoint; the coordinator fans a signing message out to the endpoints
// and fans at least threshold verified partials back in. The combination
// and verification semantics stay entirely in the multisig core.
package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// alpnProtocol is the ALPN protocol identifier.
const alpnProtocol = "quorumsig/1"

// Message types for the signing protocol.
const (
	msgTypeSignRequest  = 0x01 // Request to sign a message
	msgTypeSignResponse = 0x02 // Partial signature response
	msgTypeRefusal      = 0x03 // Holder declined to sign
)

// Refusal reasons.
const (
	reasonUnavailable = 0x01 // Holder cannot sign right now
	reasonTooLarge    = 0x02 // Message exceeds the size bound
	reasonMalformed   = 0x03 // Request could not be decoded
)

// errMessageTooLarge marks a request rejected for exceeding
// maxSigningMessageSize, so the server can pick the matching refusal reason.
var errMessageTooLarge = errors.New("signing message too large")

// maxSigningMessageSize bounds the message a holder will sign (1 MB).
const maxSigningMessageSize = 1 << 20

// maxFrameSize bounds one protocol frame.
const maxFrameSize = maxSigningMessageSize + 16

// EncodeSignRequest encodes a signing request.
// Format: [1B type] [4B BE msgLen] [msg]
func EncodeSignRequest(message []byte) []byte {
	buf := make([]byte, 5+len(message))
	buf[0] = msgTypeSignRequest
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(message)))
	copy(buf[5:], message)

	return buf
}

// DecodeSignRequest decodes a signing request, returning the message.
func DecodeSignRequest(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("request too short: %d bytes", len(data))
	}

	if data[0] != msgTypeSignRequest {
		return nil, fmt.Errorf("invalid message type: 0x%02x", data[0])
	}

	length := binary.BigEndian.Uint32(data[1:5])

	if length > maxSigningMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", errMessageTooLarge, length, maxSigningMessageSize)
	}

	if uint32(len(data)-5) != length {
		return nil, fmt.Errorf("message truncated: need %d, have %d", length, len(data)-5)
	}

	message := make([]byte, length)
	copy(message, data[5:])

	return message, nil
}

// EncodeSignResponse encodes a partial signature response.
// Format: [1B type] [2B BE sigLen] [sig]
func EncodeSignResponse(signature []byte) []byte {
	buf := make([]byte, 3+len(signature))
	buf[0] = msgTypeSignResponse
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(signature)))
	copy(buf[3:], signature)

	return buf
}

// DecodeSignResponse decodes a partial signature response. A refusal
// frame is two bytes, so it is recognized before the response length guard.
func DecodeSignResponse(data []byte) ([]byte, error) {
	if len(data) >= 2 && data[0] == msgTypeRefusal {
		return nil, fmt.Errorf("holder refused: reason 0x%02x", data[1])
	}

	if len(data) < 3 {
		return nil, fmt.Errorf("response too short: %d bytes", len(data))
	}

	if data[0] != msgTypeSignResponse {
		return nil, fmt.Errorf("invalid message type: 0x%02x", data[0])
	}

	length := binary.BigEndian.Uint16(data[1:3])

	if uint16(len(data)-3) != length {
		return nil, fmt.Errorf("signature truncated: need %d, have %d", length, len(data)-3)
	}

	sig := make([]byte, length)
	copy(sig, data[3:])

	return sig, nil
}

// EncodeRefusal encodes a refusal with a reason code.
// Format: [1B type] [1B reason]
func EncodeRefusal(reason byte) []byte {
	return []byte{msgTypeRefusal, reason}
}

// writeFrame writes a length-prefixed frame to the writer.
// Format: [4B BE length] [payload]
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d > %d", len(data), maxFrameSize)
	}

	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length:\n%w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload:\n%w", err)
	}

	return nil
}

// readFrame reads a length-prefixed frame from the reader.
func readFrame(r io.Reader) ([]byte, error) {
	var lengthBuf [4]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("read length:\n%w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])

	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d > %d", length, maxFrameSize)
	}

	data := make([]byte, length)

	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read payload:\n%w", err)
	}

	return data, nil
}
