package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox"
	"github.com/ninepin/mailbox/session"
	"github.com/ninepin/mailbox/store"
)

// Closed handles actor closing their grid. contents is what a compose grid
// held at close; empty slots may be zero payloads. It returns the entry that
// was open.
func (h *Listener) Closed(ctx context.Context, actor uuid.UUID, contents []store.Payload) (session.Entry, error) {
	entry := h.tracker.Close(actor)
	switch entry.Kind {
	case session.AdminBroadcastCompose:
		return entry, h.sendAll(ctx, actor, contents)
	case session.AdminTargetedCompose:
		return entry, h.sendTo(ctx, actor, entry.Target, contents)
	default:
		return entry, nil
	}
}

func (h *Listener) sendAll(ctx context.Context, actor uuid.UUID, contents []store.Payload) error {
	sent := false
	var errs []error
	for _, p := range contents {
		if p.IsEmpty() {
			continue
		}
		res, err := h.svc.DeliverAll(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sent = true
		if err := res.Err(); err != nil {
			h.logger.Warn("broadcast partially failed",
				"item", h.label(p), "failed", res.FailureCount(), "error", err)
		}
	}
	if sent {
		h.server.Message(actor, msgSentAll)
		h.logger.Info("admin sent items to all players", "admin", h.displayName(ctx, actor))
	}
	return errors.Join(errs...)
}

func (h *Listener) sendTo(ctx context.Context, actor, target uuid.UUID, contents []store.Payload) error {
	targetName := h.displayName(ctx, target)
	sent := false
	var errs []error
	for _, p := range contents {
		if p.IsEmpty() {
			continue
		}
		if err := h.deliver(ctx, actor, target, p); err != nil {
			errs = append(errs, err)
			continue
		}
		sent = true
		h.logger.Info("admin sent item to player",
			"admin", h.displayName(ctx, actor),
			"target", targetName,
			"item", h.label(p),
		)
	}
	if sent {
		h.server.Message(actor, fmt.Sprintf(msgSentTarget, targetName))
		h.refresh(ctx, target)
	}
	return errors.Join(errs...)
}

// Overflow puts an item that did not fit user's inventory into their
// mailbox.
func (h *Listener) Overflow(ctx context.Context, user uuid.UUID, p store.Payload) error {
	if p.IsEmpty() {
		return nil
	}
	if err := h.deliver(ctx, user, user, p); err != nil {
		return err
	}
	h.server.Message(user, msgOverflow)
	h.refresh(ctx, user)
	return nil
}

// deliver delivers one item to user. A failed write-through is logged and
// reported to actor; the item is in the mailbox and a later save persists it.
func (h *Listener) deliver(ctx context.Context, actor, user uuid.UUID, p store.Payload) error {
	_, err := h.svc.Deliver(ctx, user, p)
	if pe, ok := mailbox.IsPersistError(err); ok {
		h.logger.Warn("delivery not persisted", "user", pe.User, "error", pe.Err)
		h.server.Message(actor, msgSaveFailed)
		return nil
	}
	return err
}
