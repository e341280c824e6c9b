package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// Plugin extends the service. Init runs during Connect in registration
// order; Close runs during Close in reverse order.
//
// A plugin that also implements DeliverHook or RemoveHook is called around
// the matching mutations.
type Plugin interface {
	Name() string
	Init(ctx context.Context) error
	Close(ctx context.Context) error
}

// DeliverHook observes deliveries.
type DeliverHook interface {
	Plugin
	// BeforeDeliver may veto the item by returning an error; the caller then
	// gets ErrDeliveryRejected.
	BeforeDeliver(ctx context.Context, user uuid.UUID, payload store.Payload) error
	// AfterDeliver sees a copy of the stored mail. Its error is only logged.
	AfterDeliver(ctx context.Context, user uuid.UUID, mail store.Mail) error
}

// RemoveHook observes claims and admin deletions after the mail has left the
// mailbox. reason is RemovalClaimed or RemovalDeleted. Errors are logged.
type RemoveHook interface {
	Plugin
	AfterRemove(ctx context.Context, user uuid.UUID, mail store.Mail, reason string) error
}

// PluginError wraps a plugin failure with the plugin name and the step.
type PluginError struct {
	Plugin string
	Op     string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

type pluginRegistry struct {
	plugins  []Plugin
	delivers []DeliverHook
	removes  []RemoveHook
	logger   *slog.Logger
}

func newPluginRegistry(logger *slog.Logger) *pluginRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &pluginRegistry{logger: logger}
}

func (r *pluginRegistry) register(p Plugin) {
	r.plugins = append(r.plugins, p)
	if h, ok := p.(DeliverHook); ok {
		r.delivers = append(r.delivers, h)
	}
	if h, ok := p.(RemoveHook); ok {
		r.removes = append(r.removes, h)
	}
}

// initAll initializes plugins in order. When one fails, the ones before it
// are closed again, newest first.
func (r *pluginRegistry) initAll(ctx context.Context) error {
	for i, p := range r.plugins {
		if err := p.Init(ctx); err != nil {
			for _, err := range r.closeFirst(ctx, i) {
				r.logger.Error("plugin close after failed init", "error", err)
			}
			return &PluginError{Plugin: p.Name(), Op: "init", Err: err}
		}
	}
	return nil
}

func (r *pluginRegistry) closeAll(ctx context.Context) error {
	return errors.Join(r.closeFirst(ctx, len(r.plugins))...)
}

// closeFirst closes plugins[:n] in reverse order.
func (r *pluginRegistry) closeFirst(ctx context.Context, n int) []error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Close(ctx); err != nil {
			errs = append(errs, &PluginError{Plugin: p.Name(), Op: "close", Err: err})
		}
	}
	return errs
}

func (r *pluginRegistry) beforeDeliver(ctx context.Context, user uuid.UUID, payload store.Payload) error {
	for _, h := range r.delivers {
		if err := h.BeforeDeliver(ctx, user, payload); err != nil {
			return errors.Join(ErrDeliveryRejected, &PluginError{Plugin: h.Name(), Op: "BeforeDeliver", Err: err})
		}
	}
	return nil
}

func (r *pluginRegistry) afterDeliver(ctx context.Context, user uuid.UUID, mail store.Mail) {
	for _, h := range r.delivers {
		if err := h.AfterDeliver(ctx, user, mail.Clone()); err != nil {
			r.logger.Warn("plugin AfterDeliver failed", "plugin", h.Name(), "user", user, "error", err)
		}
	}
}

func (r *pluginRegistry) afterRemove(ctx context.Context, user uuid.UUID, mail store.Mail, reason string) {
	for _, h := range r.removes {
		if err := h.AfterRemove(ctx, user, mail.Clone(), reason); err != nil {
			r.logger.Warn("plugin AfterRemove failed", "plugin", h.Name(), "user", user, "reason", reason, "error", err)
		}
	}
}
