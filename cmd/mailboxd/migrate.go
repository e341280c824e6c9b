package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ninepin/mailbox/internal/backend"
	"github.com/ninepin/mailbox/internal/config"
	"github.com/ninepin/mailbox/internal/logging"
	"github.com/spf13/pflag"
)

// migrate copies every mailbox from the configured backend into the backend
// described by --to. Target mailboxes are overwritten; others are left alone.
func migrate(ctx context.Context, args []string, out io.Writer) (err error) {
	var to string
	cfg, rest, err := parse("migrate", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&to, "to", "", "config file describing the target backend")
	})
	if err != nil {
		return err
	}
	if to == "" || len(rest) > 0 {
		return fmt.Errorf("%w: migrate --to FILE", errUsage)
	}
	dstCfg, err := config.LoadFile(to)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, logger.Close()) }()

	src, err := backend.Open(ctx, cfg, logger.With("side", "source"))
	if err != nil {
		return err
	}
	dst, err := backend.Open(ctx, dstCfg, logger.With("side", "target"))
	if err != nil {
		return err
	}

	if err := connect(ctx, src, cfg.Mailbox.ConnectAttempts, logger.Logger); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer func() { err = errors.Join(err, src.Close(context.WithoutCancel(ctx))) }()
	if err := connect(ctx, dst, dstCfg.Mailbox.ConnectAttempts, logger.Logger); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	defer func() { err = errors.Join(err, dst.Close(context.WithoutCancel(ctx))) }()

	all, err := src.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}
	if err := dst.SaveAll(ctx, all); err != nil {
		return fmt.Errorf("save target: %w", err)
	}

	items := 0
	for _, mails := range all {
		items += len(mails)
	}
	logger.Info("migration complete", "from", cfg.Backend, "to", dstCfg.Backend, "mailboxes", len(all), "items", items)
	fmt.Fprintf(out, "migrated %d mailboxes (%d items) from %s to %s\n", len(all), items, cfg.Backend, dstCfg.Backend)
	return nil
}
