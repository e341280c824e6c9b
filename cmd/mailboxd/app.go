package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox"
	"github.com/ninepin/mailbox/host"
	"github.com/ninepin/mailbox/internal/backend"
	"github.com/ninepin/mailbox/internal/config"
	"github.com/ninepin/mailbox/internal/logging"
	"github.com/ninepin/mailbox/retry"
	"github.com/ninepin/mailbox/store"
)

// app is a connected service plus the console host driving it.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	svc    mailbox.Service
	host   *host.Listener
}

// openApp connects a service on the configured backend. Autosave runs only
// when autosave is true.
func openApp(ctx context.Context, cfg *config.Config, out io.Writer, autosave bool) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := backend.Open(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	con := &console{out: out, logger: logger.Logger}
	opts := []mailbox.Option{
		mailbox.WithStore(st),
		mailbox.WithLogger(logger.Logger),
		mailbox.WithNotifier(host.NewNotifier(con)),
		mailbox.WithMaxConcurrentOps(cfg.Mailbox.MaxConcurrentOps),
		mailbox.WithSaveConcurrency(cfg.Mailbox.SaveConcurrency),
		mailbox.WithShutdownTimeout(cfg.Mailbox.ShutdownTimeout),
		mailbox.WithOTel(cfg.Telemetry),
		mailbox.WithAutosaveInterval(0),
	}
	if autosave {
		opts = append(opts, mailbox.WithAutosaveInterval(cfg.Mailbox.AutosaveInterval))
	}
	if client := backend.EventClient(cfg); client != nil {
		opts = append(opts, mailbox.WithRedisClient(client))
	}

	svc, err := mailbox.NewService(opts...)
	if err != nil {
		logger.Close()
		return nil, err
	}
	if err := connect(ctx, svc, cfg.Mailbox.ConnectAttempts, logger.Logger); err != nil {
		logger.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		host:   host.New(svc, con, con, host.WithLogger(logger.Logger)),
	}, nil
}

// connect retries Connect while the backend is unreachable.
func connect(ctx context.Context, c interface{ Connect(context.Context) error }, attempts int, logger *slog.Logger) error {
	cfg := retry.DefaultConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.IsRetryable = func(err error) bool {
		return retry.DefaultIsRetryable(err) &&
			!errors.Is(err, mailbox.ErrAlreadyConnected) &&
			!errors.Is(err, store.ErrAlreadyConnected)
	}
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("connect failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	return retry.Do(ctx, cfg, c.Connect)
}

// Close saves and releases everything, even when ctx is already canceled.
func (a *app) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Mailbox.ShutdownTimeout+5*time.Second)
	defer cancel()
	err := a.svc.Close(ctx)
	return errors.Join(err, a.logger.Close())
}

// parseUsers parses user identities given on the command line.
func parseUsers(args []string) ([]uuid.UUID, error) {
	users := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("%w: bad user %q: %w", errUsage, a, err)
		}
		users = append(users, id)
	}
	return users, nil
}
