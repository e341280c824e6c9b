package mailbox

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestNewOptions(t *testing.T) {
	t.Run("returns defaults without options", func(t *testing.T) {
		opts := newOptions()

		if opts.autosaveInterval != DefaultAutosaveInterval {
			t.Errorf("expected autosaveInterval %v, got %v", DefaultAutosaveInterval, opts.autosaveInterval)
		}
		if opts.maxPayloadSize != DefaultMaxPayloadSize {
			t.Errorf("expected maxPayloadSize %v, got %v", DefaultMaxPayloadSize, opts.maxPayloadSize)
		}
		if opts.maxKindLength != DefaultMaxKindLength {
			t.Errorf("expected maxKindLength %v, got %v", DefaultMaxKindLength, opts.maxKindLength)
		}
		if opts.maxConcurrentOps != DefaultMaxConcurrentOps {
			t.Errorf("expected maxConcurrentOps %v, got %v", DefaultMaxConcurrentOps, opts.maxConcurrentOps)
		}
		if opts.saveConcurrency != DefaultSaveConcurrency {
			t.Errorf("expected saveConcurrency %v, got %v", DefaultSaveConcurrency, opts.saveConcurrency)
		}
		if opts.shutdownTimeout != DefaultShutdownTimeout {
			t.Errorf("expected shutdownTimeout %v, got %v", DefaultShutdownTimeout, opts.shutdownTimeout)
		}
		if opts.logger == nil {
			t.Error("expected default logger")
		}
		if opts.now == nil {
			t.Error("expected default clock")
		}
		if opts.onEventPublishFailure == nil {
			t.Error("expected default publish failure handler")
		}
		if opts.store != nil {
			t.Error("expected no store")
		}
	})

	t.Run("ignores nil and non-positive values", func(t *testing.T) {
		opts := newOptions(
			WithStore(nil),
			WithLogger(nil),
			WithPlugin(nil),
			WithPlugins(nil, nil),
			WithClock(nil),
			WithMaxPayloadSize(0),
			WithMaxConcurrentOps(-1),
			WithSaveConcurrency(0),
			WithServiceName(""),
			WithEventTransport(nil),
			WithRedisClient(nil),
			WithEventPublishFailureHandler(nil),
		)

		if opts.logger == nil || opts.now == nil {
			t.Fatal("expected defaults to survive nil options")
		}
		if len(opts.plugins) != 0 {
			t.Errorf("expected no plugins, got %d", len(opts.plugins))
		}
		if opts.maxPayloadSize != DefaultMaxPayloadSize {
			t.Errorf("expected maxPayloadSize %v, got %v", DefaultMaxPayloadSize, opts.maxPayloadSize)
		}
		if opts.maxConcurrentOps != DefaultMaxConcurrentOps {
			t.Errorf("expected maxConcurrentOps %v, got %v", DefaultMaxConcurrentOps, opts.maxConcurrentOps)
		}
		if opts.saveConcurrency != DefaultSaveConcurrency {
			t.Errorf("expected saveConcurrency %v, got %v", DefaultSaveConcurrency, opts.saveConcurrency)
		}
		if opts.serviceName != "" {
			t.Errorf("expected empty serviceName, got %q", opts.serviceName)
		}
	})

	t.Run("applies custom values", func(t *testing.T) {
		logger := slog.New(slog.DiscardHandler)
		fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		opts := newOptions(
			WithLogger(logger),
			WithClock(func() time.Time { return fixed }),
			WithAutosaveInterval(0),
			WithMaxPayloadSize(512),
			WithSaveConcurrency(2),
			WithOTel(true),
			WithServiceName("lobby"),
		)

		if opts.logger != logger {
			t.Error("expected custom logger")
		}
		if !opts.now().Equal(fixed) {
			t.Errorf("expected clock %v, got %v", fixed, opts.now())
		}
		if opts.autosaveInterval != 0 {
			t.Errorf("expected autosave disabled, got %v", opts.autosaveInterval)
		}
		if opts.maxPayloadSize != 512 {
			t.Errorf("expected maxPayloadSize 512, got %d", opts.maxPayloadSize)
		}
		if opts.saveConcurrency != 2 {
			t.Errorf("expected saveConcurrency 2, got %d", opts.saveConcurrency)
		}
		if !opts.tracingEnabled || !opts.metricsEnabled {
			t.Error("expected tracing and metrics enabled")
		}
		if opts.serviceName != "lobby" {
			t.Errorf("expected serviceName lobby, got %q", opts.serviceName)
		}
	})

	t.Run("raises short shutdown timeout", func(t *testing.T) {
		opts := newOptions(WithShutdownTimeout(time.Millisecond))
		if opts.shutdownTimeout != MinShutdownTimeout {
			t.Errorf("expected %v, got %v", MinShutdownTimeout, opts.shutdownTimeout)
		}
	})
}

func TestSafeEventPublishFailure(t *testing.T) {
	t.Run("calls handler", func(t *testing.T) {
		var got string
		opts := newOptions(WithEventPublishFailureHandler(func(name string, err error) {
			got = name
		}))
		opts.safeEventPublishFailure("MailDelivered", errors.New("down"))
		if got != "MailDelivered" {
			t.Errorf("expected MailDelivered, got %q", got)
		}
	})

	t.Run("survives panicking handler", func(t *testing.T) {
		opts := newOptions(
			WithLogger(slog.New(slog.DiscardHandler)),
			WithEventPublishFailureHandler(func(string, error) { panic("boom") }),
		)
		opts.safeEventPublishFailure("MailRemoved", errors.New("down"))
	})
}
