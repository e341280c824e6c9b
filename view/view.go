// Package view decides how a mailbox is laid out in the host's grid UI.
//
// A view is a grid of rows RowWidth slots wide holding at most MaxSlots
// entries. Each entry is a decorated copy of a stored item; decorating never
// touches the stored item itself.
package view

import (
	"time"

	"github.com/ninepin/mailbox/store"
)

const (
	// RowWidth is the number of slots per grid row.
	RowWidth = 9
	// MaxSlots is the largest grid the host can show. Items past it are
	// hidden until earlier ones are claimed.
	MaxSlots = 6 * RowWidth
	// DefaultTimeLayout formats receipt times.
	DefaultTimeLayout = "2006-01-02 15:04:05"
)

// Role is the viewer's relationship to the mailbox.
type Role int

const (
	// Owner views their own mailbox and can claim.
	Owner Role = iota
	// Admin manages another user's mailbox: claim a copy or delete.
	Admin
	// Inspector can only look.
	Inspector
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	case Inspector:
		return "inspector"
	default:
		return "unknown"
	}
}

// Hint is an action the viewer can take on an entry.
type Hint int

const (
	HintClaim Hint = iota
	HintClaimCopy
	HintDelete
)

func (h Hint) String() string {
	switch h {
	case HintClaim:
		return "Left-click to claim"
	case HintClaimCopy:
		return "Left-click to claim a copy"
	case HintDelete:
		return "Shift+right-click to delete"
	default:
		return ""
	}
}

// Hints returns the actions offered to role.
func (r Role) Hints() []Hint {
	switch r {
	case Owner:
		return []Hint{HintClaim}
	case Admin:
		return []Hint{HintClaimCopy, HintDelete}
	default:
		return nil
	}
}

// Entry is one occupied slot.
type Entry struct {
	// Slot is the grid position, equal to the mailbox index.
	Slot int
	// Mail is a copy of the stored item.
	Mail store.Mail
	// ReceivedAt is the formatted receipt time.
	ReceivedAt string
	// Hints are the actions offered for this entry.
	Hints []Hint
}

// View is a composed grid.
type View struct {
	// Size is the number of slots in the grid.
	Size int
	// Entries fill slots 0..len(Entries)-1.
	Entries []Entry
	// Hidden counts items that did not fit.
	Hidden int
}

// Size returns the grid size for a mailbox of n items: whole rows enough to
// hold n, capped at MaxSlots, and never less than one row.
func Size(n int) int {
	if n <= 0 {
		return RowWidth
	}
	rows := (n + RowWidth - 1) / RowWidth
	return min(MaxSlots, rows*RowWidth)
}

// SlotIndex maps a clicked slot to a mailbox index for a mailbox of n items.
// Slots outside the grid or past the last item are not addressable.
func SlotIndex(n, slot int) (int, bool) {
	if slot < 0 || slot >= MaxSlots || slot >= n {
		return 0, false
	}
	return slot, true
}

// Composer builds views. The zero value is not usable; call NewComposer.
type Composer struct {
	layout string
	loc    *time.Location
}

// Option configures a Composer.
type Option func(*Composer)

// WithTimeLayout sets the layout for receipt times.
func WithTimeLayout(layout string) Option {
	return func(c *Composer) {
		if layout != "" {
			c.layout = layout
		}
	}
}

// WithLocation sets the time zone receipt times are shown in.
func WithLocation(loc *time.Location) Option {
	return func(c *Composer) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewComposer creates a Composer. Times default to DefaultTimeLayout in the
// local time zone.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{layout: DefaultTimeLayout, loc: time.Local}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose lays out mails, newest first, for role.
func (c *Composer) Compose(mails []store.Mail, role Role) View {
	shown := min(len(mails), MaxSlots)
	v := View{
		Size:    Size(len(mails)),
		Entries: make([]Entry, shown),
		Hidden:  len(mails) - shown,
	}
	hints := role.Hints()
	for i := range shown {
		v.Entries[i] = Entry{
			Slot:       i,
			Mail:       mails[i].Clone(),
			ReceivedAt: c.FormatTime(mails[i]),
			Hints:      append([]Hint(nil), hints...),
		}
	}
	return v
}

// FormatTime formats the receipt time of m.
func (c *Composer) FormatTime(m store.Mail) string {
	return m.ReceivedAt().In(c.loc).Format(c.layout)
}

// ComposeGrid returns the empty grid an administrator fills with items to
// send.
func ComposeGrid() View {
	return View{Size: MaxSlots, Entries: []Entry{}}
}
