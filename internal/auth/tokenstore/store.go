// Package tokenstore persists a single access token encrypted at rest.
//
// A Store combines a Backend, which moves opaque bytes to and from disk,
// with a Sealer, which encrypts them. Two backends exist: a plain file and a
// bbolt database. Both keep a random per-install salt next to the data; the
// encryption key is derived from a passphrase and that salt.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/giantswarm/meta-ads-mcp/internal/config"
)

// ErrNotFound is returned when no token has been persisted.
var ErrNotFound = errors.New("no persisted token")

// Record is the persisted form of a token.
type Record struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Method      string    `json:"method"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Persister is durable storage for one token record.
type Persister interface {
	Load() (*Record, error)
	Save(*Record) error
	Delete() error
	Close() error
}

// Backend stores opaque bytes plus the key-derivation salt.
type Backend interface {
	Read() ([]byte, error)
	Write([]byte) error
	Remove() error
	Salt() ([]byte, error)
	Close() error
}

// Store is a Persister that encrypts records before handing them to a Backend.
type Store struct {
	backend Backend
	sealer  *Sealer
}

var _ Persister = (*Store)(nil)

// New creates a Store over backend, deriving the encryption key from
// passphrase and the backend's salt.
func New(backend Backend, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("token store requires a passphrase, app secret or app id")
	}

	salt, err := backend.Salt()
	if err != nil {
		return nil, fmt.Errorf("failed to load token store salt: %w", err)
	}

	sealer, err := NewSealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	return &Store{backend: backend, sealer: sealer}, nil
}

// Open builds the Store selected by cfg. It must not be called for the
// memory store kind.
func Open(cfg config.TokenStoreConfig, passphrase string) (*Store, error) {
	var backend Backend
	switch cfg.Kind {
	case config.StoreKindFile:
		backend = NewFileBackend(cfg.Path)
	case config.StoreKindBolt:
		backend = NewBoltBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("token store kind %q is not persistent", cfg.Kind)
	}

	store, err := New(backend, passphrase)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}

// Load reads and decrypts the persisted record.
func (s *Store) Load() (*Record, error) {
	data, err := s.backend.Read()
	if err != nil {
		return nil, err
	}

	plaintext, err := s.sealer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var record Record
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if record.AccessToken == "" {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Save encrypts and writes the record, replacing any previous one.
func (s *Store) Save(record *Record) error {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	data, err := s.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	return s.backend.Write(data)
}

// Delete removes the persisted record. Deleting a missing record is not an error.
func (s *Store) Delete() error {
	return s.backend.Remove()
}

// Close releases the backend and destroys key material.
func (s *Store) Close() error {
	s.sealer.Destroy()
	return s.backend.Close()
}
