// Package document provides a document-per-user implementation of
// store.Store. Each user's mailbox is one JSON document in a Bucket, keyed by
// the user's identity.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on top of a Bucket.
type Store struct {
	bucket    Bucket
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a document store over bucket. The store owns bucket and
// closes it in Close.
func New(bucket Bucket, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		bucket: bucket,
		opts:   o,
		logger: o.logger,
	}
}

// Connect connects the underlying bucket.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	if s.bucket == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("document: bucket is required")
	}
	if err := s.bucket.Connect(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("document: connect bucket: %w", err)
	}
	return nil
}

// Close closes the underlying bucket.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	return s.bucket.Close(ctx)
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Load reads the user's document. A missing document is an empty mailbox.
func (s *Store) Load(ctx context.Context, user uuid.UUID) ([]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	return s.load(ctx, user.String())
}

func (s *Store) load(ctx context.Context, key string) ([]store.Mail, error) {
	data, err := s.bucket.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return []store.Mail{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document: get %s: %w", key, err)
	}
	return decode(data, key, s.logger)
}

// LoadAll reads every document in the bucket. Keys that are not user
// identities and documents that cannot be read are skipped and logged.
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID][]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("document: list keys: %w", err)
	}

	var (
		mu  sync.Mutex
		out = make(map[uuid.UUID][]store.Mail, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.loadConcurrency)
	for _, key := range keys {
		user, err := uuid.Parse(key)
		if err != nil {
			s.logger.Warn("skipping document with invalid user identity", "key", key, "error", err)
			continue
		}
		g.Go(func() error {
			mails, err := s.load(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("skipping unreadable mailbox document", "key", key, "error", err)
				return nil
			}
			mu.Lock()
			out[user] = mails
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the user's whole mailbox as one document. An empty mailbox is
// written as an empty document.
func (s *Store) Save(ctx context.Context, user uuid.UUID, mails []store.Mail) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := store.ValidUser(user); err != nil {
		return err
	}
	data, err := encode(mails)
	if err != nil {
		return fmt.Errorf("document: encode: %w", err)
	}
	if err := s.bucket.Put(ctx, user.String(), data); err != nil {
		return fmt.Errorf("document: put %s: %w", user, err)
	}
	return nil
}

// SaveAll writes one document per user.
func (s *Store) SaveAll(ctx context.Context, all map[uuid.UUID][]store.Mail) error {
	return store.SaveEach(ctx, s, all)
}
