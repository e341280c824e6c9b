// Package host connects the mailbox service to a game host.
//
// The host owns players, inventories, chat and the grid UI. It reports what
// happened (a player joined, clicked a slot, closed a view) to a Listener and
// implements Server and Inventory so the Listener can answer. Everything here
// runs on the host's event path; nothing blocks on more than one backend
// write.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox"
	"github.com/ninepin/mailbox/resolver"
	"github.com/ninepin/mailbox/session"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/view"
)

// Permissions checked by the Listener.
const (
	PermAdmin = "mailbox.admin"
	PermCheck = "mailbox.check"
)

// Errors returned to the host. The actor has already been told.
var (
	ErrPermissionDenied = errors.New("host: permission denied")
	ErrUnknownTarget    = errors.New("host: unknown target")
)

// Server is the part of the host the Listener talks to.
type Server interface {
	// Online reports whether the user is connected.
	Online(user uuid.UUID) bool
	// Name returns the user's current name, or "" when unknown.
	Name(user uuid.UUID) string
	// Message sends a chat line to the user.
	Message(user uuid.UUID, text string)
	// HasPermission reports whether the user holds perm.
	HasPermission(user uuid.UUID, perm string) bool
	// Render shows screen to the user, replacing whatever grid was open.
	Render(user uuid.UUID, screen Screen)
}

// Inventory moves items into player inventories.
type Inventory interface {
	// Give puts the item into the user's inventory. It returns false and
	// changes nothing when there is no room.
	Give(user uuid.UUID, p store.Payload) bool
}

// Screen is a grid to render.
type Screen struct {
	Title  string
	Kind   session.Kind
	Target uuid.UUID
	Role   view.Role
	View   view.View
}

// Click describes a click inside an open grid.
type Click struct {
	Slot  int
	Left  bool
	Right bool
	Shift bool
}

// Listener turns host events into mailbox operations.
type Listener struct {
	svc      mailbox.Service
	server   Server
	inv      Inventory
	tracker  *session.Tracker
	composer *view.Composer
	resolver resolver.Resolver
	label    func(store.Payload) string
	logger   *slog.Logger
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the logger for admin actions and failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Listener) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithResolver sets how names typed by admins become identities.
func WithResolver(r resolver.Resolver) Option {
	return func(h *Listener) {
		if r != nil {
			h.resolver = r
		}
	}
}

// WithComposer sets the view composer.
func WithComposer(c *view.Composer) Option {
	return func(h *Listener) {
		if c != nil {
			h.composer = c
		}
	}
}

// WithTracker shares a session tracker.
func WithTracker(t *session.Tracker) Option {
	return func(h *Listener) {
		if t != nil {
			h.tracker = t
		}
	}
}

// WithItemLabel sets how an item is named in chat and listings. The default
// is the item kind.
func WithItemLabel(fn func(store.Payload) string) Option {
	return func(h *Listener) {
		if fn != nil {
			h.label = fn
		}
	}
}

// New creates a Listener.
func New(svc mailbox.Service, server Server, inv Inventory, opts ...Option) *Listener {
	h := &Listener{
		svc:      svc,
		server:   server,
		inv:      inv,
		tracker:  session.NewTracker(),
		composer: view.NewComposer(),
		resolver: resolver.NewStatic(nil),
		label:    func(p store.Payload) string { return p.Kind },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Tracker returns the session tracker.
func (h *Listener) Tracker() *session.Tracker {
	return h.tracker
}

// NewNotifier returns a mailbox.Notifier that tells online recipients about
// new items through server.
func NewNotifier(server Server) mailbox.Notifier {
	return mailbox.NotifierFunc(func(_ context.Context, user uuid.UUID, _ store.Mail) bool {
		if !server.Online(user) {
			return false
		}
		server.Message(user, msgNewMail)
		return true
	})
}

// remember lets a learning resolver see names as players show up.
type remember interface {
	Remember(name string, id uuid.UUID)
}

// Join loads the player's mailbox and tells them about unread items.
func (h *Listener) Join(ctx context.Context, user uuid.UUID) error {
	if r, ok := h.resolver.(remember); ok {
		r.Remember(h.server.Name(user), user)
	}
	if err := h.svc.EnsureLoaded(ctx, user); err != nil {
		h.logger.Error("failed to load mailbox on join", "user", user, "error", err)
		return err
	}
	if n := h.svc.UnreadCount(user); n > 0 {
		h.server.Message(user, fmt.Sprintf(msgUnread, n))
	}
	return nil
}

// LookupTarget resolves a name typed by actor. Unknown names are reported to
// the actor.
func (h *Listener) LookupTarget(ctx context.Context, actor uuid.UUID, name string) (uuid.UUID, error) {
	id, err := h.resolver.Lookup(ctx, name)
	if err != nil {
		h.server.Message(actor, fmt.Sprintf(msgPlayerNotFound, name))
		return uuid.Nil, fmt.Errorf("%w: %s: %w", ErrUnknownTarget, name, err)
	}
	return id, nil
}

// displayName names a user for titles and messages.
func (h *Listener) displayName(ctx context.Context, user uuid.UUID) string {
	if name := h.server.Name(user); name != "" {
		return name
	}
	if name, err := h.resolver.Name(ctx, user); err == nil {
		return name
	}
	return unknownPlayer
}

func (h *Listener) require(actor uuid.UUID, perms ...string) error {
	for _, p := range perms {
		if h.server.HasPermission(actor, p) {
			return nil
		}
	}
	h.server.Message(actor, msgNoPermission)
	return ErrPermissionDenied
}

// UnreadPlaceholder resolves the unread_count placeholder for user. Other
// placeholder names are not handled.
func (h *Listener) UnreadPlaceholder(user uuid.UUID, param string) (string, bool) {
	if !equalFold(param, "unread_count") {
		return "", false
	}
	if user == uuid.Nil {
		return "", true
	}
	return fmt.Sprint(h.svc.UnreadCount(user)), true
}
