package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/session"
	"github.com/ninepin/mailbox/view"
)

// OpenMailbox shows actor their own mailbox.
func (h *Listener) OpenMailbox(ctx context.Context, actor uuid.UUID) error {
	if err := h.svc.EnsureLoaded(ctx, actor); err != nil {
		h.logger.Error("failed to load mailbox", "user", actor, "error", err)
		return err
	}
	entry := h.tracker.OpenOwn(actor)
	h.render(ctx, actor, entry)
	return nil
}

// OpenBroadcast shows actor an empty grid whose contents go to every
// resident user on close.
func (h *Listener) OpenBroadcast(ctx context.Context, actor uuid.UUID) error {
	if err := h.require(actor, PermAdmin); err != nil {
		return err
	}
	entry := h.tracker.OpenBroadcast(actor)
	h.render(ctx, actor, entry)
	return nil
}

// OpenTargeted shows actor an empty grid whose contents go to the named
// player on close.
func (h *Listener) OpenTargeted(ctx context.Context, actor uuid.UUID, targetName string) error {
	if err := h.require(actor, PermAdmin); err != nil {
		return err
	}
	target, err := h.LookupTarget(ctx, actor, targetName)
	if err != nil {
		return err
	}
	entry, err := h.tracker.OpenTargeted(actor, target)
	if err != nil {
		return err
	}
	h.render(ctx, actor, entry)
	return nil
}

// OpenInspect shows actor the named player's mailbox. Holders of PermAdmin
// can take copies and delete; holders of only PermCheck can look.
func (h *Listener) OpenInspect(ctx context.Context, actor uuid.UUID, targetName string) error {
	if err := h.require(actor, PermAdmin, PermCheck); err != nil {
		return err
	}
	target, err := h.LookupTarget(ctx, actor, targetName)
	if err != nil {
		return err
	}
	if err := h.svc.EnsureLoaded(ctx, target); err != nil {
		h.logger.Error("failed to load mailbox", "user", target, "error", err)
		return err
	}
	entry, err := h.tracker.OpenInspect(actor, target)
	if err != nil {
		return err
	}
	h.render(ctx, actor, entry)
	return nil
}

// render draws entry for actor from current mailbox contents.
func (h *Listener) render(ctx context.Context, actor uuid.UUID, entry session.Entry) {
	screen := Screen{Kind: entry.Kind, Target: entry.Target}
	switch entry.Kind {
	case session.OwnMailbox:
		screen.Title = titleOwn
		screen.Role = view.Owner
		screen.View = h.composer.Compose(h.svc.Mails(actor), view.Owner)
	case session.AdminBroadcastCompose:
		screen.Title = titleBroadcast
		screen.Role = view.Admin
		screen.View = view.ComposeGrid()
	case session.AdminTargetedCompose:
		screen.Title = fmt.Sprintf(titleTargeted, h.displayName(ctx, entry.Target))
		screen.Role = view.Admin
		screen.View = view.ComposeGrid()
	case session.AdminInspectTarget:
		screen.Role = h.inspectRole(actor)
		if screen.Role == view.Admin {
			screen.Title = fmt.Sprintf(titleInspect, h.displayName(ctx, entry.Target))
		} else {
			screen.Title = fmt.Sprintf(titleReadOnly, h.displayName(ctx, entry.Target))
		}
		screen.View = h.composer.Compose(h.svc.Mails(entry.Target), screen.Role)
	default:
		return
	}
	h.server.Render(actor, screen)
}

func (h *Listener) inspectRole(actor uuid.UUID) view.Role {
	if h.server.HasPermission(actor, PermAdmin) {
		return view.Admin
	}
	return view.Inspector
}

// refresh redraws every open view of owner's mailbox.
func (h *Listener) refresh(ctx context.Context, owner uuid.UUID) {
	for _, actor := range h.tracker.Viewers(owner) {
		h.render(ctx, actor, h.tracker.Get(actor))
	}
}
