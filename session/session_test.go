package session

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestTracker(t *testing.T) {
	actor, target, other := uuid.New(), uuid.New(), uuid.New()

	t.Run("closed by default", func(t *testing.T) {
		tr := NewTracker()
		if e := tr.Get(actor); e.Open() || e.Kind != Closed {
			t.Errorf("Get = %+v, want closed", e)
		}
		if e := tr.Close(actor); e.Open() {
			t.Errorf("Close on closed actor = %+v", e)
		}
	})

	t.Run("open replaces prior entry", func(t *testing.T) {
		tr := NewTracker()
		tr.OpenOwn(actor)
		if _, err := tr.OpenInspect(actor, target); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.OpenInspect(actor, other); err != nil {
			t.Fatal(err)
		}
		want := Entry{Kind: AdminInspectTarget, Target: other}
		if got := tr.Get(actor); got != want {
			t.Errorf("Get = %+v, want %+v", got, want)
		}
		if tr.Len() != 1 {
			t.Errorf("Len = %d, want 1", tr.Len())
		}
	})

	t.Run("close returns and clears", func(t *testing.T) {
		tr := NewTracker()
		if _, err := tr.OpenTargeted(actor, target); err != nil {
			t.Fatal(err)
		}
		got := tr.Close(actor)
		if got.Kind != AdminTargetedCompose || got.Target != target {
			t.Errorf("Close = %+v", got)
		}
		if tr.Get(actor).Open() {
			t.Error("entry still open after Close")
		}
	})

	t.Run("targeted kinds need a target", func(t *testing.T) {
		tr := NewTracker()
		tr.OpenBroadcast(actor)
		if _, err := tr.OpenTargeted(actor, uuid.Nil); !errors.Is(err, ErrTargetRequired) {
			t.Errorf("OpenTargeted: got %v", err)
		}
		if _, err := tr.OpenInspect(actor, uuid.Nil); !errors.Is(err, ErrTargetRequired) {
			t.Errorf("OpenInspect: got %v", err)
		}
		if got := tr.Get(actor).Kind; got != AdminBroadcastCompose {
			t.Errorf("failed open changed entry to %v", got)
		}
	})

	t.Run("viewers", func(t *testing.T) {
		tr := NewTracker()
		admin := uuid.New()
		tr.OpenOwn(target)
		if _, err := tr.OpenInspect(admin, target); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.OpenTargeted(other, target); err != nil {
			t.Fatal(err)
		}
		got := tr.Viewers(target)
		if len(got) != 2 || !slices.Contains(got, target) || !slices.Contains(got, admin) {
			t.Errorf("Viewers = %v", got)
		}
	})
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind     Kind
		name     string
		targeted bool
		compose  bool
	}{
		{Closed, "closed", false, false},
		{OwnMailbox, "own", false, false},
		{AdminBroadcastCompose, "broadcast", false, true},
		{AdminTargetedCompose, "targeted", true, true},
		{AdminInspectTarget, "inspect", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.kind.String() != tt.name {
				t.Errorf("String = %q", tt.kind.String())
			}
			if tt.kind.Targeted() != tt.targeted {
				t.Errorf("Targeted = %v", tt.kind.Targeted())
			}
			if tt.kind.Compose() != tt.compose {
				t.Errorf("Compose = %v", tt.kind.Compose())
			}
		})
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := uuid.New()
			tr.OpenOwn(actor)
			_, _ = tr.OpenInspect(actor, uuid.New())
			tr.Get(actor)
			tr.Close(actor)
		}()
	}
	wg.Wait()
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
}
