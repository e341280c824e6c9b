package mailbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// Notifier tells a recipient about a new item. Implementations return false
// when the user is not reachable right now; the item is delivered either way.
type Notifier interface {
	NotifyDelivered(ctx context.Context, user uuid.UUID, mail store.Mail) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, user uuid.UUID, mail store.Mail) bool

func (f NotifierFunc) NotifyDelivered(ctx context.Context, user uuid.UUID, mail store.Mail) bool {
	return f(ctx, user, mail)
}
