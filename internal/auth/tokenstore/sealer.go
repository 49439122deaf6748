package tokenstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the length of the per-install key derivation salt.
const SaltSize = 16

// Argon2id parameters for deriving the store key.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// additionalData binds ciphertexts to this use.
var additionalData = []byte("meta-ads-mcp/token/v1")

// Sealer encrypts token records with XChaCha20-Poly1305. The key lives in a
// memguard enclave and is only decrypted for the duration of one operation.
type Sealer struct {
	mu  sync.RWMutex
	key *memguard.Enclave
}

// NewSealer derives a key from passphrase and salt with argon2id.
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("salt must be at least %d bytes, got %d", SaltSize, len(salt))
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)

	// NewEnclave wipes key.
	return &Sealer{key: memguard.NewEnclave(key)}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, errors.New("sealer destroyed")
	}

	buf, err := key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open reverses Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, errors.New("sealer destroyed")
	}

	buf, err := key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	if len(data) < aead.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce size")
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decrypting ciphertext: %w", err)
	}
	return plaintext, nil
}

// Destroy drops the key. The sealer cannot be used afterwards.
func (s *Sealer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}
