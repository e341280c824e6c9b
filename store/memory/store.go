// Package memory provides an in-memory Store implementation for tests and
// ephemeral hosts. Data is lost when the process exits.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	mailboxes map[uuid.UUID][]store.Mail
	connected int32

	// failSave, when set, is returned by every Save.
	failSave atomic.Pointer[error]
	saves    atomic.Int64
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{mailboxes: make(map[uuid.UUID][]store.Mail)}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected. Stored mailboxes are kept so a
// reconnect sees them again.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Load returns a copy of the user's mailbox.
func (s *Store) Load(_ context.Context, user uuid.UUID) ([]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CloneMails(s.mailboxes[user]), nil
}

// LoadAll returns a copy of every stored mailbox.
func (s *Store) LoadAll(_ context.Context) (map[uuid.UUID][]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID][]store.Mail, len(s.mailboxes))
	for user, mails := range s.mailboxes {
		out[user] = store.CloneMails(mails)
	}
	return out, nil
}

// Save replaces the user's mailbox with a copy of mails.
func (s *Store) Save(_ context.Context, user uuid.UUID, mails []store.Mail) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := store.ValidUser(user); err != nil {
		return err
	}
	if errp := s.failSave.Load(); errp != nil {
		return *errp
	}
	s.mu.Lock()
	s.mailboxes[user] = store.CloneMails(mails)
	s.mu.Unlock()
	s.saves.Add(1)
	return nil
}

// SaveAll saves every mailbox in all.
func (s *Store) SaveAll(ctx context.Context, all map[uuid.UUID][]store.Mail) error {
	return store.SaveEach(ctx, s, all)
}

// FailSaves makes every subsequent Save return err. A nil err restores
// normal behaviour.
func (s *Store) FailSaves(err error) {
	if err == nil {
		s.failSave.Store(nil)
		return
	}
	s.failSave.Store(&err)
}

// SaveCount returns the number of successful saves.
func (s *Store) SaveCount() int64 {
	return s.saves.Load()
}

// Seed stores mails for user without going through Save.
func (s *Store) Seed(user uuid.UUID, mails []store.Mail) {
	s.mu.Lock()
	s.mailboxes[user] = store.CloneMails(mails)
	s.mu.Unlock()
}
