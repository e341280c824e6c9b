// Package session tracks which mailbox view each actor has open.
//
// An actor has at most one open view. Opening a view replaces whatever the
// actor had open before; closing it hands the entry back so the caller can
// finish the close (deliver composed items, clear state).
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrTargetRequired is returned when a targeted view is opened without a
// target.
var ErrTargetRequired = errors.New("session: target is required")

// Kind identifies an open view.
type Kind int

const (
	// Closed means the actor has no mailbox view open.
	Closed Kind = iota
	// OwnMailbox is the actor's own mailbox.
	OwnMailbox
	// AdminBroadcastCompose is an empty grid whose contents go to every
	// resident user on close.
	AdminBroadcastCompose
	// AdminTargetedCompose is an empty grid whose contents go to Target on
	// close.
	AdminTargetedCompose
	// AdminInspectTarget shows Target's mailbox to an administrator.
	AdminInspectTarget
)

func (k Kind) String() string {
	switch k {
	case Closed:
		return "closed"
	case OwnMailbox:
		return "own"
	case AdminBroadcastCompose:
		return "broadcast"
	case AdminTargetedCompose:
		return "targeted"
	case AdminInspectTarget:
		return "inspect"
	default:
		return "unknown"
	}
}

// Targeted reports whether the kind carries a target.
func (k Kind) Targeted() bool {
	return k == AdminTargetedCompose || k == AdminInspectTarget
}

// Compose reports whether the kind collects items to deliver on close.
func (k Kind) Compose() bool {
	return k == AdminBroadcastCompose || k == AdminTargetedCompose
}

// Entry is an actor's open view.
type Entry struct {
	Kind   Kind
	Target uuid.UUID
}

// Open reports whether the entry is an open view.
func (e Entry) Open() bool {
	return e.Kind != Closed
}

// Tracker holds one Entry per actor. The zero value is not usable; call
// NewTracker. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[uuid.UUID]Entry)}
}

// OpenOwn records that actor is viewing their own mailbox.
func (t *Tracker) OpenOwn(actor uuid.UUID) Entry {
	e, _ := t.open(actor, Entry{Kind: OwnMailbox})
	return e
}

// OpenBroadcast records that actor is composing a broadcast.
func (t *Tracker) OpenBroadcast(actor uuid.UUID) Entry {
	e, _ := t.open(actor, Entry{Kind: AdminBroadcastCompose})
	return e
}

// OpenTargeted records that actor is composing items for target.
func (t *Tracker) OpenTargeted(actor, target uuid.UUID) (Entry, error) {
	return t.open(actor, Entry{Kind: AdminTargetedCompose, Target: target})
}

// OpenInspect records that actor is inspecting target's mailbox.
func (t *Tracker) OpenInspect(actor, target uuid.UUID) (Entry, error) {
	return t.open(actor, Entry{Kind: AdminInspectTarget, Target: target})
}

func (t *Tracker) open(actor uuid.UUID, e Entry) (Entry, error) {
	if e.Kind.Targeted() && e.Target == uuid.Nil {
		return Entry{}, ErrTargetRequired
	}
	t.mu.Lock()
	t.entries[actor] = e
	t.mu.Unlock()
	return e, nil
}

// Get returns the actor's open view. A closed view has Kind Closed.
func (t *Tracker) Get(actor uuid.UUID) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[actor]
}

// Close clears the actor's view and returns what was open.
func (t *Tracker) Close(actor uuid.UUID) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[actor]
	delete(t.entries, actor)
	return e
}

// Viewers returns the actors whose open view shows target's mailbox.
func (t *Tracker) Viewers(target uuid.UUID) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []uuid.UUID
	for actor, e := range t.entries {
		if (e.Kind == AdminInspectTarget && e.Target == target) || (e.Kind == OwnMailbox && actor == target) {
			out = append(out, actor)
		}
	}
	return out
}

// Len returns the number of open views.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
