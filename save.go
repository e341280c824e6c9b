package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Save triggers for metrics and logs.
const (
	saveTriggerWrite    = "write-through"
	saveTriggerExplicit = "explicit"
	saveTriggerAutosave = "autosave"
	saveTriggerShutdown = "shutdown"
)

// SaveResult reports the outcome of saving every resident mailbox.
type SaveResult struct {
	// Saved is the number of mailboxes written.
	Saved int
	// Failed maps each user whose save failed to the error.
	Failed map[uuid.UUID]error
}

// HasFailures returns true if any mailbox could not be written.
func (r *SaveResult) HasFailures() bool {
	return r != nil && len(r.Failed) > 0
}

// Save writes the user's resident mailbox to the backend. Saving a user that
// is not resident does nothing, so durable data is never replaced by an
// empty list.
func (s *service) Save(ctx context.Context, user uuid.UUID) error {
	if user == uuid.Nil {
		return ErrInvalidUser
	}
	release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	mb := s.resident(user)
	if mb == nil {
		return nil
	}
	return s.saveUser(ctx, user, mb, saveTriggerExplicit)
}

// SaveAll writes every resident mailbox. It is idempotent and safe to run
// while other saves are in flight. In-memory state is never changed.
func (s *service) SaveAll(ctx context.Context) (*SaveResult, error) {
	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.saveAll(ctx, saveTriggerExplicit)
}

func (s *service) saveAll(ctx context.Context, trigger string) (*SaveResult, error) {
	s.mu.RLock()
	boxes := make(map[uuid.UUID]*mailbox, len(s.mailboxes))
	for user, mb := range s.mailboxes {
		boxes[user] = mb
	}
	s.mu.RUnlock()

	ctx, endSpan := s.otel.startSpan(ctx, "mailbox.SaveAll",
		attribute.String("trigger", trigger),
		attribute.Int("users", len(boxes)),
	)

	result := &SaveResult{Failed: make(map[uuid.UUID]error)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.saveConcurrency)
	for user, mb := range boxes {
		g.Go(func() error {
			err := s.saveUser(ctx, user, mb, trigger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[user] = err
			} else {
				result.Saved++
			}
			return nil
		})
	}
	_ = g.Wait()

	var err error
	if result.HasFailures() {
		err = fmt.Errorf("%w: %d of %d mailboxes", ErrSaveFailed, len(result.Failed), len(boxes))
	}
	endSpan(err)
	return result, err
}

// saveUser writes one mailbox. Writes of a user are serialized and the
// snapshot is taken after the serialization lock is held, so the last
// snapshot taken is the last one written.
func (s *service) saveUser(ctx context.Context, user uuid.UUID, mb *mailbox, trigger string) error {
	mb.saveMu.Lock()
	defer mb.saveMu.Unlock()

	mb.mu.Lock()
	snapshot := store.CloneMails(mb.mails)
	mb.mu.Unlock()

	start := time.Now()
	err := s.store.Save(ctx, user, snapshot)
	s.otel.recordSave(ctx, time.Since(start), trigger, err)
	if err != nil {
		s.logger.Error("failed to save mailbox",
			"user", user, "trigger", trigger, "mails", len(snapshot), "error", err)
		return err
	}
	return nil
}
