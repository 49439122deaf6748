package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	boltBucket   = []byte("tokens")
	boltTokenKey = []byte("meta")
	boltSaltKey  = []byte("salt")
)

// boltLockTimeout bounds how long we wait for another process holding the
// database lock.
const boltLockTimeout = time.Second

// BoltBackend keeps the encrypted token in a bbolt database. The database
// is opened per operation so that the server and CLI commands can share it.
type BoltBackend struct {
	path string
}

var _ Backend = (*BoltBackend)(nil)

// NewBoltBackend returns a backend using the database at path.
func NewBoltBackend(path string) *BoltBackend {
	return &BoltBackend{path: path}
}

func (b *BoltBackend) open() (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}
	db, err := bbolt.Open(b.path, 0600, &bbolt.Options{Timeout: boltLockTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return db, nil
}

func (b *BoltBackend) Read() ([]byte, error) {
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return ErrNotFound
		}
		v := bucket.Get(boltTokenKey)
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BoltBackend) Write(data []byte) error {
	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(boltTokenKey, data)
	})
}

func (b *BoltBackend) Remove() error {
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		return nil
	}

	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltTokenKey)
	})
}

// Salt returns the install salt stored in the database, creating it on first use.
func (b *BoltBackend) Salt() ([]byte, error) {
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var salt []byte
	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		if v := bucket.Get(boltSaltKey); len(v) >= SaltSize {
			salt = append([]byte(nil), v...)
			return nil
		}
		salt, err = newSalt()
		if err != nil {
			return err
		}
		return bucket.Put(boltSaltKey, salt)
	})
	if err != nil {
		return nil, err
	}
	return salt, nil
}

func (b *BoltBackend) Close() error {
	return nil
}
