package mailbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"go.opentelemetry.io/otel/attribute"
)

// ClaimOutcome is the result of a claim attempt.
type ClaimOutcome int

const (
	// ClaimNotFound means the index did not address an item. Nothing changed.
	ClaimNotFound ClaimOutcome = iota
	// ClaimNoSpace means the recipient could not take the item. It stays in
	// the mailbox.
	ClaimNoSpace
	// ClaimOK means the item was handed over and removed.
	ClaimOK
)

func (o ClaimOutcome) String() string {
	switch o {
	case ClaimNotFound:
		return "not_found"
	case ClaimNoSpace:
		return "no_space"
	case ClaimOK:
		return "ok"
	default:
		return "unknown"
	}
}

// Deliver adds an item to the front of the user's mailbox, loading the
// mailbox first if needed, and writes it through to the backend.
//
// If only the write-through fails, the returned mail is valid and err is a
// *PersistError.
func (s *service) Deliver(ctx context.Context, user uuid.UUID, payload store.Payload) (store.Mail, error) {
	if user == uuid.Nil {
		return store.Mail{}, ErrInvalidUser
	}
	if err := validatePayload(payload, s.opts); err != nil {
		return store.Mail{}, err
	}
	release, err := s.begin(ctx)
	if err != nil {
		return store.Mail{}, err
	}
	defer release()

	return s.deliver(ctx, user, payload)
}

func (s *service) deliver(ctx context.Context, user uuid.UUID, payload store.Payload) (mail store.Mail, err error) {
	ctx, endSpan := s.otel.startSpan(ctx, "mailbox.Deliver",
		attribute.String("user", user.String()),
		attribute.String("kind", payload.Kind),
	)
	start := time.Now()
	defer func() {
		s.otel.recordDeliver(ctx, time.Since(start), payload.Kind, err)
		endSpan(err)
	}()

	if err := s.plugins.beforeDeliver(ctx, user, payload); err != nil {
		return store.Mail{}, err
	}

	// Loading first keeps an unloaded mailbox from being replaced by a list
	// holding only the new item.
	if err := s.EnsureLoaded(ctx, user); err != nil {
		return store.Mail{}, err
	}
	mb := s.resident(user)

	mail = store.NewMail(payload.Clone(), s.opts.now())
	mb.mu.Lock()
	mb.mails = append([]store.Mail{mail}, mb.mails...)
	unread := store.CountUnread(mb.mails)
	mb.mu.Unlock()

	saveErr := s.saveUser(ctx, user, mb, saveTriggerWrite)

	if s.opts.notifier != nil {
		if !s.opts.notifier.NotifyDelivered(ctx, user, mail.Clone()) {
			s.logger.Debug("recipient not reachable", "user", user)
		}
	}

	if pubErr := s.events.MailDelivered.Publish(ctx, MailDeliveredEvent{
		UserID:     user.String(),
		Kind:       mail.Payload.Kind,
		ReceivedAt: mail.ReceivedAt(),
		Unread:     unread,
	}); pubErr != nil {
		s.opts.safeEventPublishFailure("MailDelivered", &EventPublishError{Event: "MailDelivered", User: user, Err: pubErr})
	}

	s.plugins.afterDeliver(ctx, user, mail)

	if saveErr != nil {
		return mail.Clone(), &PersistError{User: user, Err: saveErr}
	}
	return mail.Clone(), nil
}

// RemoveAt deletes the item at index from the user's mailbox. An index that
// does not address an item, or a user that is not resident, is a no-op
// reported as ok == false.
func (s *service) RemoveAt(ctx context.Context, user uuid.UUID, index int) (store.Mail, bool, error) {
	if user == uuid.Nil {
		return store.Mail{}, false, ErrInvalidUser
	}
	release, err := s.begin(ctx)
	if err != nil {
		return store.Mail{}, false, err
	}
	defer release()

	mb := s.resident(user)
	if mb == nil {
		return store.Mail{}, false, nil
	}

	start := time.Now()
	mb.mu.Lock()
	removed, ok := removeAt(mb, index)
	mb.mu.Unlock()
	if !ok {
		return store.Mail{}, false, nil
	}

	err = s.afterRemove(ctx, user, mb, removed, RemovalDeleted)
	s.otel.recordRemove(ctx, time.Since(start), RemovalDeleted, err)
	return removed, true, err
}

// Claim hands the item at index to give and removes it when give accepts.
// give runs while the mailbox is locked so the item cannot be claimed twice;
// it must not call back into the service.
func (s *service) Claim(ctx context.Context, user uuid.UUID, index int, give func(store.Mail) bool) (ClaimOutcome, error) {
	if user == uuid.Nil {
		return ClaimNotFound, ErrInvalidUser
	}
	release, err := s.begin(ctx)
	if err != nil {
		return ClaimNotFound, err
	}
	defer release()

	mb := s.resident(user)
	if mb == nil {
		return ClaimNotFound, nil
	}

	start := time.Now()
	removed, outcome := takeAt(mb, index, give)
	if outcome != ClaimOK {
		return outcome, nil
	}

	err = s.afterRemove(ctx, user, mb, removed, RemovalClaimed)
	s.otel.recordRemove(ctx, time.Since(start), RemovalClaimed, err)
	return ClaimOK, err
}

// takeAt removes the item at index if give accepts it. The mailbox stays
// locked across give and is unlocked even if give panics.
func takeAt(mb *mailbox, index int, give func(store.Mail) bool) (store.Mail, ClaimOutcome) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if index < 0 || index >= len(mb.mails) {
		return store.Mail{}, ClaimNotFound
	}
	if !give(mb.mails[index].Clone()) {
		return store.Mail{}, ClaimNoSpace
	}
	removed, _ := removeAt(mb, index)
	return removed, ClaimOK
}

// removeAt removes and returns the item at index. mb.mu must be held.
func removeAt(mb *mailbox, index int) (store.Mail, bool) {
	if index < 0 || index >= len(mb.mails) {
		return store.Mail{}, false
	}
	removed := mb.mails[index]
	mb.mails = append(mb.mails[:index:index], mb.mails[index+1:]...)
	return removed, true
}

// afterRemove persists a removal and publishes it.
func (s *service) afterRemove(ctx context.Context, user uuid.UUID, mb *mailbox, removed store.Mail, reason string) error {
	saveErr := s.saveUser(ctx, user, mb, saveTriggerWrite)

	if pubErr := s.events.MailRemoved.Publish(ctx, MailRemovedEvent{
		UserID:    user.String(),
		Kind:      removed.Payload.Kind,
		Reason:    reason,
		RemovedAt: s.opts.now().UTC(),
	}); pubErr != nil {
		s.opts.safeEventPublishFailure("MailRemoved", &EventPublishError{Event: "MailRemoved", User: user, Err: pubErr})
	}
	s.plugins.afterRemove(ctx, user, removed, reason)

	if saveErr != nil {
		return &PersistError{User: user, Err: saveErr}
	}
	return nil
}
