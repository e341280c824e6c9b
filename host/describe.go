package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Describe lists user's mailbox as text lines for a console.
func (h *Listener) Describe(ctx context.Context, user uuid.UUID) ([]string, error) {
	if err := h.svc.EnsureLoaded(ctx, user); err != nil {
		return nil, err
	}
	mails := h.svc.Mails(user)

	lines := make([]string, 0, len(mails)+1)
	lines = append(lines, fmt.Sprintf("===== %s's mailbox =====", h.displayName(ctx, user)))
	if len(mails) == 0 {
		return append(lines, "Mailbox is empty"), nil
	}
	for i, m := range mails {
		lines = append(lines, fmt.Sprintf("%d. %s (received %s)", i+1, h.label(m.Payload), h.composer.FormatTime(m)))
	}
	return lines, nil
}

// DescribeNamed is Describe for a name typed at the console.
func (h *Listener) DescribeNamed(ctx context.Context, name string) ([]string, error) {
	target, err := h.resolver.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownTarget, name, err)
	}
	return h.Describe(ctx, target)
}
