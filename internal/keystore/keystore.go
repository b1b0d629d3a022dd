// Package keystore persists holder seeds and composite accounts in a
// local Pebble database. Seeds never leave the store except through
// explicit export bundles, which are the caller's responsibility.
package keystore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"quorumsig/internal/multisig"
)

// Key prefixes separate the record spaces.
const (
	holderPrefix  = "holder/"
	accountPrefix = "account/"
)

// ErrNotFound means no record exists under the requested name.
var ErrNotFound = errors.New("keystore: record not found")

// Store is a Pebble-backed key/account store.
type Store struct {
	db *pebble.DB // db is the underlying Pebble database
}

// Open opens (or creates) a store at the given path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize: 4 << 20,                  // 4 MB memtable
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open keystore:\n%w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// HolderRecord is one persisted key holder.
type HolderRecord struct {
	Name     string // Name is the holder's local name
	SchemeID byte   // SchemeID is the suite discriminator
	Seed     []byte // Seed is the private key seed
}

// Holder reconstructs the key holder from the record.
func (r *HolderRecord) Holder() (multisig.KeyHolder, error) {
	switch r.SchemeID {
	case multisig.Ed25519SchemeID:
		return multisig.Ed25519HolderFromSeed(r.Seed)
	case multisig.BLSSchemeID:
		return multisig.BLSHolderFromSeed(r.Seed)
	default:
		return nil, fmt.Errorf("unknown scheme: 0x%02x", r.SchemeID)
	}
}

// SaveHolder stores a holder record, overwriting any existing one with
// the same name. The write is synced before returning.
func (s *Store) SaveHolder(rec *HolderRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("holder name is required")
	}

	value := encodeRecord(rec.SchemeID, rec.Seed)

	if err := s.db.Set([]byte(holderPrefix+rec.Name), value, pebble.Sync); err != nil {
		return fmt.Errorf("save holder %q:\n%w", rec.Name, err)
	}

	return nil
}

// LoadHolder retrieves a holder record by name.
func (s *Store) LoadHolder(name string) (*HolderRecord, error) {
	value, err := s.get([]byte(holderPrefix + name))
	if err != nil {
		return nil, fmt.Errorf("load holder %q:\n%w", name, err)
	}

	scheme, payload, err := decodeRecord(value)
	if err != nil {
		return nil, fmt.Errorf("decode holder %q:\n%w", name, err)
	}

	return &HolderRecord{Name: name, SchemeID: scheme, Seed: payload}, nil
}

// ListHolders returns the names of all stored holders, lexicographically.
func (s *Store) ListHolders() ([]string, error) {
	return s.listNames(holderPrefix)
}

// AccountRecord is one persisted composite account.
type AccountRecord struct {
	Name         string // Name is the account's local name
	SchemeID     byte   // SchemeID is the suite discriminator
	CompositeKey []byte // CompositeKey is the encoded composite public key
}

// CompositePublicKey reconstructs the composite key from the record.
func (r *AccountRecord) CompositePublicKey() (*multisig.CompositePublicKey, error) {
	suite, err := multisig.SuiteByScheme(r.SchemeID)
	if err != nil {
		return nil, err
	}

	return multisig.DecodeCompositePublicKey(suite, r.CompositeKey)
}

// SaveAccount stores a composite account record.
func (s *Store) SaveAccount(rec *AccountRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("account name is required")
	}

	value := encodeRecord(rec.SchemeID, rec.CompositeKey)

	if err := s.db.Set([]byte(accountPrefix+rec.Name), value, pebble.Sync); err != nil {
		return fmt.Errorf("save account %q:\n%w", rec.Name, err)
	}

	return nil
}

// LoadAccount retrieves an account record by name.
func (s *Store) LoadAccount(name string) (*AccountRecord, error) {
	value, err := s.get([]byte(accountPrefix + name))
	if err != nil {
		return nil, fmt.Errorf("load account %q:\n%w", name, err)
	}

	scheme, payload, err := decodeRecord(value)
	if err != nil {
		return nil, fmt.Errorf("decode account %q:\n%w", name, err)
	}

	return &AccountRecord{Name: name, SchemeID: scheme, CompositeKey: payload}, nil
}

// ListAccounts returns the names of all stored accounts, lexicographically.
func (s *Store) ListAccounts() ([]string, error) {
	return s.listNames(accountPrefix)
}

// get retrieves and copies out a value.
func (s *Store) get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// listNames collects record names under a prefix.
func (s *Store) listNames(prefix string) ([]string, error) {
	var names []string

	err := s.iteratePrefix([]byte(prefix), func(key, _ []byte) error {
		names = append(names, string(key[len(prefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

// iteratePrefix calls fn for each key-value pair with the given prefix.
func (s *Store) iteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
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

// prefixUpperBound returns the smallest key greater than every key with
// the prefix, or nil if none exists.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}

	return nil
}

// encodeRecord encodes a record value: [1B scheme] [4B BE payloadLen] [payload].
func encodeRecord(scheme byte, payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	buf[0] = scheme
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)

	return buf
}

// decodeRecord parses a record value.
func decodeRecord(data []byte) (byte, []byte, error) {
	if len(data) < 5 {
		return 0, nil, fmt.Errorf("record too short: %d bytes", len(data))
	}

	length := binary.BigEndian.Uint32(data[1:5])
	if uint32(len(data)-5) != length {
		return 0, nil, fmt.Errorf("record length mismatch: header %d, payload %d", length, len(data)-5)
	}

	payload := make([]byte, length)
	copy(payload, data[5:])

	return data[0], payload, nil
}
