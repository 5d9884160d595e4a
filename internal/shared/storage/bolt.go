package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"
)

const documentsBktName = "documents"

// Bolt keeps documents as keys of a single bucket in a BoltDB file.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the database file at path.
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.With("path", path, "context", "failed to create database directory").Wrap(err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, oops.With("path", path, "context", "failed to open boltdb").Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(documentsBktName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.With("bucket", documentsBktName, "context", "failed to create bucket").Wrap(err)
	}

	return &Bolt{db: db}, nil
}

// Document returns the document stored under key.
func (b *Bolt) Document(key string) *BoltDocument {
	return &BoltDocument{db: b.db, key: key}
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// BoltDocument is a document stored under a key of the documents bucket.
type BoltDocument struct {
	db  *bolt.DB
	key string
}

// Name returns the document key.
func (d *BoltDocument) Name() string { return d.key }

// Read returns a copy of the stored value or ErrNotFound.
func (d *BoltDocument) Read(_ context.Context) ([]byte, error) {
	var data []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(documentsBktName)).Get([]byte(d.key))
		if v == nil {
			return ErrNotFound
		}
		// values are only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write stores data under the document key in a single transaction.
func (d *BoltDocument) Write(_ context.Context, data []byte) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(documentsBktName)).Put([]byte(d.key), data)
	})
	if err != nil {
		return oops.With("key", d.key, "context", "failed to put document").Wrap(err)
	}
	return nil
}
