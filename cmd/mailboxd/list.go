package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ninepin/mailbox"
	"github.com/ninepin/mailbox/content"
	"github.com/ninepin/mailbox/store"
	"github.com/spf13/pflag"
)

// list prints the mailboxes of the given users, or of every stored user.
func list(ctx context.Context, args []string, out io.Writer) error {
	cfg, rest, err := parse("list", args, nil)
	if err != nil {
		return err
	}
	users, err := parseUsers(rest)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, out, false)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		if err := a.svc.LoadAll(ctx); err != nil {
			return errors.Join(err, a.Close(ctx))
		}
		users = a.svc.Users()
		if len(users) == 0 {
			fmt.Fprintln(out, "No mailboxes")
		}
	}
	for _, user := range users {
		lines, err := a.host.Describe(ctx, user)
		if err != nil {
			return errors.Join(err, a.Close(ctx))
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}
	return a.Close(ctx)
}

// deliver puts one item into a mailbox, or with --all into every stored
// mailbox.
func deliver(ctx context.Context, args []string, out io.Writer) error {
	var all, msgpack bool
	cfg, rest, err := parse("deliver", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&all, "all", false, "deliver to every stored mailbox; USER is omitted")
		fs.BoolVar(&msgpack, "msgpack", false, "encode the item data as msgpack instead of JSON")
	})
	if err != nil {
		return err
	}

	want := 2
	if all {
		want = 1
	}
	if len(rest) < want || len(rest) > want+1 {
		return fmt.Errorf("%w: deliver [--all] USER KIND [JSON]", errUsage)
	}
	users, err := parseUsers(rest[:want-1])
	if err != nil {
		return err
	}
	payload, err := itemPayload(rest[want-1:], msgpack)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, out, false)
	if err != nil {
		return err
	}

	if all {
		if err := a.svc.LoadAll(ctx); err != nil {
			return errors.Join(err, a.Close(ctx))
		}
		res, err := a.svc.DeliverAll(ctx, payload)
		if err != nil {
			return errors.Join(err, a.Close(ctx))
		}
		fmt.Fprintf(out, "delivered %s to %d of %d mailboxes\n", payload.Kind, res.SuccessCount(), res.TotalCount())
		for _, user := range res.FailedUsers() {
			fmt.Fprintf(out, "failed: %s\n", user)
		}
		return a.Close(ctx)
	}

	user := users[0]
	_, err = a.svc.Deliver(ctx, user, payload)
	perr, unsaved := mailbox.IsPersistError(err)
	if err != nil && !unsaved {
		return errors.Join(err, a.Close(ctx))
	}
	fmt.Fprintf(out, "delivered %s to %s (%d unread)\n", payload.Kind, user, a.svc.UnreadCount(user))
	if unsaved {
		fmt.Fprintf(out, "warning: %v; retrying on close\n", perr.Err)
	}
	return a.Close(ctx)
}

// itemPayload builds a payload from KIND and an optional JSON document.
func itemPayload(args []string, msgpack bool) (store.Payload, error) {
	kind := args[0]
	if len(args) == 1 {
		return content.Raw(kind, nil), nil
	}
	var v any
	if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
		return store.Payload{}, fmt.Errorf("%w: item data is not JSON: %w", errUsage, err)
	}
	codec := content.JSON
	if msgpack {
		codec = content.MsgPack
	}
	return content.Encode(codec, kind, v)
}
