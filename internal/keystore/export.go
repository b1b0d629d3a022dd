package keystore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Export bundle format, before compression:
// repeated ( [2B BE keyLen] [key] [4B BE valLen] [value] ), then a 32-byte
// BLAKE3 checksum of everything before it. The bundle is zstd-compressed
// and prefixed with a 4-byte magic plus a version byte.
var exportMagic = []byte{'Q', 'S', 'K', 'S'}

// exportVersion is the current bundle format version.
const exportVersion = 1

// Export writes a compressed, checksummed bundle of every record in the
// store. The bundle contains holder seeds: treat it like the keys themselves.
func (s *Store) Export(w io.Writer) error {
	var payload []byte

	err := s.iterateAll(func(key, value []byte) error {
		if len(key) > 0xffff {
			return fmt.Errorf("key too long: %d bytes", len(key))
		}

		payload = binary.BigEndian.AppendUint16(payload, uint16(len(key)))
		payload = append(payload, key...)
		payload = binary.BigEndian.AppendUint32(payload, uint32(len(value)))
		payload = append(payload, value...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("collect records:\n%w", err)
	}

	checksum := blake3.Sum256(payload)
	payload = append(payload, checksum[:]...)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create encoder:\n%w", err)
	}

	compressed := encoder.EncodeAll(payload, nil)
	encoder.Close()

	header := append(append([]byte{}, exportMagic...), exportVersion)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header:\n%w", err)
	}

	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("write bundle:\n%w", err)
	}

	return nil
}

// Import reads a bundle written by Export and stores every record,
// overwriting existing records with the same keys.
func (s *Store) Import(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read bundle:\n%w", err)
	}

	if len(data) < len(exportMagic)+1 || string(data[:len(exportMagic)]) != string(exportMagic) {
		return fmt.Errorf("not a keystore bundle")
	}

	if version := data[len(exportMagic)]; version != exportVersion {
		return fmt.Errorf("unsupported bundle version: %d", version)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	payload, err := decoder.DecodeAll(data[len(exportMagic)+1:], nil)
	if err != nil {
		return fmt.Errorf("decompress bundle:\n%w", err)
	}

	if len(payload) < 32 {
		return fmt.Errorf("bundle too short: %d bytes", len(payload))
	}

	body := payload[:len(payload)-32]
	checksum := blake3.Sum256(body)

	if string(checksum[:]) != string(payload[len(payload)-32:]) {
		return fmt.Errorf("bundle checksum mismatch")
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for len(body) > 0 {
		if len(body) < 2 {
			return fmt.Errorf("truncated record header")
		}

		keyLen := binary.BigEndian.Uint16(body[:2])
		body = body[2:]

		if len(body) < int(keyLen)+4 {
			return fmt.Errorf("truncated record key")
		}

		key := body[:keyLen]
		body = body[keyLen:]

		valLen := binary.BigEndian.Uint32(body[:4])
		body = body[4:]

		if uint32(len(body)) < valLen {
			return fmt.Errorf("truncated record value")
		}

		if err := batch.Set(key, body[:valLen], nil); err != nil {
			return fmt.Errorf("stage record:\n%w", err)
		}

		body = body[valLen:]
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit bundle:\n%w", err)
	}

	return nil
}

// iterateAll calls fn for every record in the store, lexicographically.
func (s *Store) iterateAll(fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}
