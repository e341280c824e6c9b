// Command mailboxd runs and maintains a mailbox store outside the game host.
//
// Usage:
//
//	mailboxd serve   [flags]                   load every mailbox and autosave until signalled
//	mailboxd list    [flags] [USER...]         print mailboxes
//	mailboxd deliver [flags] USER KIND [JSON]  deliver one item
//	mailboxd migrate [flags] --to FILE         copy every mailbox into another backend
//
// Flags, MAILBOX_* environment variables and --config select the backend;
// see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ninepin/mailbox/internal/config"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mailboxd: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "serve":
		return serve(ctx, rest, out)
	case "list":
		return list(ctx, rest, out)
	case "deliver":
		return deliver(ctx, rest, out)
	case "migrate":
		return migrate(ctx, rest, out)
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		usage(out)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "Usage: mailboxd <serve|list|deliver|migrate> [flags] [args]")
	fmt.Fprintln(out, "  serve                    load every mailbox and autosave until signalled")
	fmt.Fprintln(out, "  list [USER...]           print mailboxes (all when no user is given)")
	fmt.Fprintln(out, "  deliver USER KIND [JSON] deliver one item")
	fmt.Fprintln(out, "  migrate --to FILE        copy every mailbox into the backend FILE describes")
}

// parse registers the shared flags plus extra on a fresh set, parses args and
// resolves the configuration.
func parse(name string, args []string, extra func(*pflag.FlagSet)) (*config.Config, []string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}
