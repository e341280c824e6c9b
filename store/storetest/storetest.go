// Package storetest provides a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// Factory returns a connected store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Mail builds a mail for kind received offset milliseconds after a fixed base.
func Mail(kind string, offset int64) store.Mail {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	return store.Mail{
		Payload: store.Payload{
			Kind:        kind,
			ContentType: "application/json",
			Data:        []byte(`{"kind":"` + kind + `"}`),
		},
		Timestamp: base + offset,
	}
}

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("load of unknown user is empty", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		got, err := s.Load(ctx, uuid.New())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("save then load round trips newest first", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		user := uuid.New()
		want := []store.Mail{Mail("DIAMOND", 300), Mail("EMERALD", 200), Mail("STONE", 100)}
		want[1].Read = true

		if err := s.Save(ctx, user, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := s.Load(ctx, user)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("save overwrites previous state", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		user := uuid.New()
		if err := s.Save(ctx, user, []store.Mail{Mail("A", 2), Mail("B", 1)}); err != nil {
			t.Fatalf("first save: %v", err)
		}
		want := []store.Mail{Mail("C", 3)}
		if err := s.Save(ctx, user, want); err != nil {
			t.Fatalf("second save: %v", err)
		}
		got, err := s.Load(ctx, user)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("saving empty mailbox clears it", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		user := uuid.New()
		if err := s.Save(ctx, user, []store.Mail{Mail("A", 1)}); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.Save(ctx, user, nil); err != nil {
			t.Fatalf("save empty: %v", err)
		}
		got, err := s.Load(ctx, user)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty mailbox, got %d mails", len(got))
		}
	})

	t.Run("save all then load all", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		alice, bob := uuid.New(), uuid.New()
		want := map[uuid.UUID][]store.Mail{
			alice: {Mail("GOLD", 20), Mail("IRON", 10)},
			bob:   {Mail("BREAD", 5)},
		}
		if err := s.SaveAll(ctx, want); err != nil {
			t.Fatalf("save all: %v", err)
		}
		got, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		for user, mails := range want {
			if diff := cmp.Diff(mails, got[user]); diff != "" {
				t.Errorf("user %s mismatch (-want +got):\n%s", user, diff)
			}
		}
	})

	t.Run("save all is idempotent", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		user := uuid.New()
		all := map[uuid.UUID][]store.Mail{user: {Mail("A", 2), Mail("B", 1)}}
		for i := 0; i < 2; i++ {
			if err := s.SaveAll(ctx, all); err != nil {
				t.Fatalf("save all #%d: %v", i+1, err)
			}
		}
		got, err := s.Load(ctx, user)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff(all[user], got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil user is rejected", func(t *testing.T) {
		s := newStore(t)
		defer s.Close(ctx)

		if err := s.Save(ctx, uuid.Nil, []store.Mail{Mail("A", 1)}); err == nil {
			t.Error("expected error for nil user")
		}
	})
}
