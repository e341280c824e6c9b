package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	steve, alex := uuid.New(), uuid.New()
	r := NewStatic(map[string]uuid.UUID{"Steve": steve})
	r.Remember("Alex", alex)

	t.Run("case insensitive lookup", func(t *testing.T) {
		for _, name := range []string{"steve", "STEVE", " Steve "} {
			id, err := r.Lookup(ctx, name)
			if err != nil || id != steve {
				t.Errorf("Lookup(%q) = %v, %v", name, id, err)
			}
		}
	})

	t.Run("name keeps case", func(t *testing.T) {
		name, err := r.Name(ctx, alex)
		if err != nil || name != "Alex" {
			t.Errorf("Name = %q, %v", name, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := r.Lookup(ctx, "herobrine"); !errors.Is(err, ErrUnknownPlayer) {
			t.Errorf("expected ErrUnknownPlayer, got %v", err)
		}
		if _, err := r.Name(ctx, uuid.New()); !errors.Is(err, ErrUnknownPlayer) {
			t.Errorf("expected ErrUnknownPlayer, got %v", err)
		}
	})

	t.Run("rename", func(t *testing.T) {
		r.Remember("Stevie", steve)
		if _, err := r.Lookup(ctx, "steve"); !errors.Is(err, ErrUnknownPlayer) {
			t.Errorf("old name still resolves: %v", err)
		}
		if id, _ := r.Lookup(ctx, "stevie"); id != steve {
			t.Errorf("new name = %v", id)
		}
	})

	t.Run("ignores empty input", func(t *testing.T) {
		r.Remember("", uuid.New())
		r.Remember("Nobody", uuid.Nil)
		if _, err := r.Lookup(ctx, "nobody"); err == nil {
			t.Error("nil identity was remembered")
		}
	})
}
