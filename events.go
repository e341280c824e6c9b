package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for mailbox events.
const (
	EventNameMailDelivered = "mailbox.mail.delivered"
	EventNameMailRemoved   = "mailbox.mail.removed"
)

// Removal reasons carried by MailRemovedEvent.
const (
	RemovalClaimed = "claimed"
	RemovalDeleted = "deleted"
)

// MailDeliveredEvent is published after an item lands in a mailbox.
type MailDeliveredEvent struct {
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	ReceivedAt time.Time `json:"received_at"`
	Unread     int       `json:"unread"`
}

// MailRemovedEvent is published after an item leaves a mailbox, either
// claimed by its owner or deleted by an administrator.
type MailRemovedEvent struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	RemovedAt time.Time `json:"removed_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus.
type ServiceEvents struct {
	MailDelivered event.Event[MailDeliveredEvent]
	MailRemoved   event.Event[MailRemovedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MailDelivered: event.New[MailDeliveredEvent](namePrefix + "." + EventNameMailDelivered),
		MailRemoved:   event.New[MailRemovedEvent](namePrefix + "." + EventNameMailRemoved),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MailDelivered); err != nil {
		return fmt.Errorf("register MailDelivered: %w", err)
	}
	if err := event.Register(ctx, bus, events.MailRemoved); err != nil {
		return fmt.Errorf("register MailRemoved: %w", err)
	}
	return nil
}
