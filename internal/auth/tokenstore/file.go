package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the encrypted token in a single file with 0600
// permissions and the salt in a sibling ".salt" file.
type FileBackend struct {
	path string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the token file location.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Read() ([]byte, error) {
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return data, nil
}

// Write replaces the token file atomically via a temp file and rename.
func (b *FileBackend) Write(data []byte) error {
	if err := b.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (b *FileBackend) Remove() error {
	err := os.Remove(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Salt returns the install salt, creating it on first use.
func (b *FileBackend) Salt() ([]byte, error) {
	saltPath := b.path + ".salt"

	// #nosec G304 -- derived from configured path
	salt, err := os.ReadFile(saltPath)
	if err == nil && len(salt) >= SaltSize {
		return salt, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := b.ensureDir(); err != nil {
		return nil, err
	}
	salt, err = newSalt()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(saltPath, salt, 0600); err != nil {
		return nil, fmt.Errorf("failed to write salt file: %w", err)
	}
	return salt, nil
}

func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return fmt.Errorf("failed to create token storage directory: %w", err)
	}
	return nil
}
