package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// LoadAll reads every mailbox the backend holds and makes it resident.
// Mailboxes already in memory are left alone since memory is authoritative
// once loaded.
func (s *service) LoadAll(ctx context.Context) error {
	release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, endSpan := s.otel.startSpan(ctx, "mailbox.LoadAll")
	start := time.Now()
	all, err := s.store.LoadAll(ctx)
	s.otel.recordLoad(ctx, time.Since(start), len(all), err)
	endSpan(err)
	if err != nil {
		s.logger.Error("failed to load mailboxes", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	added := 0
	s.mu.Lock()
	for user, mails := range all {
		if _, ok := s.mailboxes[user]; ok {
			continue
		}
		s.mailboxes[user] = &mailbox{mails: store.CloneMails(mails)}
		added++
	}
	s.mu.Unlock()

	s.logger.Info("loaded mailboxes", "users", len(all), "added", added, "duration", time.Since(start))
	return nil
}

// EnsureLoaded makes the user's mailbox resident, reading it from the
// backend the first time. Concurrent callers for the same user share one
// backend read. A failed read is not remembered.
func (s *service) EnsureLoaded(ctx context.Context, user uuid.UUID) error {
	if user == uuid.Nil {
		return ErrInvalidUser
	}
	if s.resident(user) != nil {
		return nil
	}
	if !s.IsConnected() {
		return ErrNotConnected
	}

	_, err, _ := s.loads.Do(user.String(), func() (any, error) {
		if s.resident(user) != nil {
			return nil, nil
		}

		ctx, endSpan := s.otel.startSpan(ctx, "mailbox.EnsureLoaded")
		start := time.Now()
		mails, err := s.store.Load(ctx, user)
		s.otel.recordLoad(ctx, time.Since(start), 1, err)
		endSpan(err)
		if err != nil {
			s.logger.Error("failed to load mailbox", "user", user, "error", err)
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, user, err)
		}

		s.mu.Lock()
		if _, ok := s.mailboxes[user]; !ok {
			s.mailboxes[user] = &mailbox{mails: store.CloneMails(mails)}
		}
		s.mu.Unlock()
		s.logger.Debug("mailbox loaded", "user", user, "mails", len(mails))
		return nil, nil
	})
	return err
}
