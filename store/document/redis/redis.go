// Package redis provides a document.Bucket stored as Redis string keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces mailbox keys.
const DefaultPrefix = "mailbox:"

// Bucket stores each document under <prefix><key>.
type Bucket struct {
	client    goredis.UniversalClient
	prefix    string
	ownClient bool
}

var _ document.Bucket = (*Bucket)(nil)

// Option configures a Redis bucket.
type Option func(*Bucket)

// WithPrefix sets the key prefix. Default is "mailbox:".
func WithPrefix(prefix string) Option {
	return func(b *Bucket) {
		b.prefix = prefix
	}
}

// WithOwnedClient makes Close also close the client.
func WithOwnedClient() Option {
	return func(b *Bucket) {
		b.ownClient = true
	}
}

// New creates a bucket on client.
func New(client goredis.UniversalClient, opts ...Option) *Bucket {
	b := &Bucket{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect verifies the server is reachable.
func (b *Bucket) Connect(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("redis: client is required")
	}
	return b.client.Ping(ctx).Err()
}

// Close closes the client when the bucket owns it.
func (b *Bucket) Close(_ context.Context) error {
	if b.ownClient {
		return b.client.Close()
	}
	return nil
}

// Keys scans for every key under the prefix.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Get returns the document stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	return data, err
}

// Put replaces the document stored under key. Documents never expire.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, b.prefix+key, data, 0).Err()
}
