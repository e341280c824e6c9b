package main

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// serve loads every mailbox and keeps the service up, autosaving, until ctx
// is canceled. Close performs the final save.
func serve(ctx context.Context, args []string, out io.Writer) error {
	cfg, rest, err := parse("serve", args, nil)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: serve takes no arguments", errUsage)
	}

	a, err := openApp(ctx, cfg, out, true)
	if err != nil {
		return err
	}
	if err := a.svc.LoadAll(ctx); err != nil {
		return errors.Join(err, a.Close(ctx))
	}
	a.logger.Info("mailboxd ready",
		"backend", cfg.Backend,
		"mailboxes", len(a.svc.Users()),
		"autosave", cfg.Mailbox.AutosaveInterval)

	<-ctx.Done()
	a.logger.Info("mailboxd stopping")
	return a.Close(ctx)
}
