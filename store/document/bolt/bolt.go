// Package bolt provides a document.Bucket stored in a single bbolt file.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
	bbolt "go.etcd.io/bbolt"
)

// DefaultBucketName is the bbolt bucket holding mailbox documents.
const DefaultBucketName = "mailboxes"

// Bucket stores documents as values of one bbolt bucket.
type Bucket struct {
	path string
	name []byte
	db   *bbolt.DB
}

var _ document.Bucket = (*Bucket)(nil)

// New creates a bucket backed by the bbolt file at path. The file is opened
// on Connect.
func New(path string) *Bucket {
	return &Bucket{path: path, name: []byte(DefaultBucketName)}
}

// Connect opens or creates the database file and ensures the bucket exists.
func (b *Bucket) Connect(_ context.Context) error {
	db, err := bbolt.Open(b.path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("bolt: open %s: %w", b.path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.name)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("bolt: create bucket: %w", err)
	}
	b.db = db
	return nil
}

// Close closes the database file.
func (b *Bucket) Close(_ context.Context) error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Keys lists every key in the bucket.
func (b *Bucket) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.name).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Get returns a copy of the value stored under key.
func (b *Bucket) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(b.name).Get([]byte(key))
		if v == nil {
			return store.ErrNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Put stores data under key in its own transaction.
func (b *Bucket) Put(_ context.Context, key string, data []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.name).Put([]byte(key), data)
	})
}
