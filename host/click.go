package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox"
	"github.com/ninepin/mailbox/session"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/view"
)

// Click handles a click in actor's open grid. It returns true when the host
// must cancel the click, which is every click in a mailbox view. Compose
// grids accept item moves freely.
func (h *Listener) Click(ctx context.Context, actor uuid.UUID, c Click) (bool, error) {
	entry := h.tracker.Get(actor)
	switch entry.Kind {
	case session.OwnMailbox:
		if !c.Left {
			return true, nil
		}
		return true, h.claim(ctx, actor, c.Slot)
	case session.AdminInspectTarget:
		if !h.server.HasPermission(actor, PermAdmin) {
			return true, nil
		}
		switch {
		case c.Shift && c.Right:
			return true, h.delete(ctx, actor, entry.Target, c.Slot)
		case c.Left:
			return true, h.copyOut(ctx, actor, entry.Target, c.Slot)
		}
		return true, nil
	default:
		return false, nil
	}
}

func (h *Listener) claim(ctx context.Context, actor uuid.UUID, slot int) error {
	index, ok := view.SlotIndex(h.svc.Len(actor), slot)
	if !ok {
		return nil
	}
	outcome, err := h.svc.Claim(ctx, actor, index, func(m store.Mail) bool {
		return h.inv.Give(actor, m.Payload)
	})
	if err != nil {
		if _, persist := mailbox.IsPersistError(err); !persist {
			return err
		}
		h.logger.Warn("claim not persisted", "user", actor, "error", err)
		defer h.server.Message(actor, msgSaveFailed)
	}

	switch outcome {
	case mailbox.ClaimOK:
		h.server.Message(actor, msgClaimed)
		h.refresh(ctx, actor)
	case mailbox.ClaimNoSpace:
		h.server.Message(actor, msgInventoryFull)
	}
	return nil
}

func (h *Listener) copyOut(ctx context.Context, actor, target uuid.UUID, slot int) error {
	index, ok := view.SlotIndex(h.svc.Len(target), slot)
	if !ok {
		return nil
	}
	mail, ok := h.svc.Mail(target, index)
	if !ok {
		return nil
	}
	if !h.inv.Give(actor, mail.Payload) {
		h.server.Message(actor, msgCopyNoRoom)
		return nil
	}
	h.server.Message(actor, fmt.Sprintf(msgCopyTaken, h.label(mail.Payload), h.displayName(ctx, target)))
	return nil
}

func (h *Listener) delete(ctx context.Context, actor, target uuid.UUID, slot int) error {
	index, ok := view.SlotIndex(h.svc.Len(target), slot)
	if !ok {
		return nil
	}
	removed, ok, err := h.svc.RemoveAt(ctx, target, index)
	if err != nil {
		if _, persist := mailbox.IsPersistError(err); !persist {
			return err
		}
		h.logger.Warn("delete not persisted", "target", target, "error", err)
		defer h.server.Message(actor, msgSaveFailed)
	}
	if !ok {
		return nil
	}

	item := h.label(removed.Payload)
	targetName := h.displayName(ctx, target)
	h.server.Message(actor, fmt.Sprintf(msgDeleted, item, targetName))
	h.logger.Info("admin removed item from mailbox",
		"admin", h.displayName(ctx, actor),
		"target", targetName,
		"item", item,
	)
	h.refresh(ctx, target)
	return nil
}
