package view

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ninepin/mailbox/store"
)

func mails(n int) []store.Mail {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]store.Mail, n)
	for i := range out {
		out[i] = store.NewMail(store.Payload{Kind: "STONE", Data: []byte{byte(i)}}, base.Add(-time.Duration(i)*time.Minute))
	}
	return out
}

func TestSize(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 9},
		{1, 9},
		{9, 9},
		{10, 18},
		{18, 18},
		{19, 27},
		{53, 54},
		{54, 54},
		{60, 54},
		{1000, 54},
	}
	for _, tt := range tests {
		if got := Size(tt.n); got != tt.want {
			t.Errorf("Size(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestSlotIndex(t *testing.T) {
	tests := []struct {
		n, slot int
		want    int
		ok      bool
	}{
		{3, 0, 0, true},
		{3, 2, 2, true},
		{3, 3, 0, false},
		{3, -1, 0, false},
		{100, 53, 53, true},
		{100, 54, 0, false},
	}
	for _, tt := range tests {
		got, ok := SlotIndex(tt.n, tt.slot)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SlotIndex(%d, %d) = %d, %v; want %d, %v", tt.n, tt.slot, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCompose(t *testing.T) {
	c := NewComposer(WithLocation(time.UTC))

	t.Run("owner", func(t *testing.T) {
		in := mails(10)
		v := c.Compose(in, Owner)
		if v.Size != 18 || len(v.Entries) != 10 || v.Hidden != 0 {
			t.Fatalf("view = size %d entries %d hidden %d", v.Size, len(v.Entries), v.Hidden)
		}
		e := v.Entries[0]
		if e.ReceivedAt != "2024-03-01 12:00:00" {
			t.Errorf("ReceivedAt = %q", e.ReceivedAt)
		}
		if diff := cmp.Diff([]Hint{HintClaim}, e.Hints); diff != "" {
			t.Errorf("hints (-want +got):\n%s", diff)
		}
		if v.Entries[9].Slot != 9 || v.Entries[9].ReceivedAt != "2024-03-01 11:51:00" {
			t.Errorf("last entry = %+v", v.Entries[9])
		}
	})

	t.Run("admin", func(t *testing.T) {
		v := c.Compose(mails(1), Admin)
		if diff := cmp.Diff([]Hint{HintClaimCopy, HintDelete}, v.Entries[0].Hints); diff != "" {
			t.Errorf("hints (-want +got):\n%s", diff)
		}
	})

	t.Run("inspector", func(t *testing.T) {
		v := c.Compose(mails(1), Inspector)
		if len(v.Entries[0].Hints) != 0 {
			t.Errorf("hints = %v, want none", v.Entries[0].Hints)
		}
	})

	t.Run("truncates past max slots", func(t *testing.T) {
		v := c.Compose(mails(60), Owner)
		if v.Size != 54 || len(v.Entries) != 54 || v.Hidden != 6 {
			t.Errorf("view = size %d entries %d hidden %d", v.Size, len(v.Entries), v.Hidden)
		}
	})

	t.Run("empty", func(t *testing.T) {
		v := c.Compose(nil, Owner)
		if v.Size != 9 || len(v.Entries) != 0 {
			t.Errorf("view = %+v", v)
		}
	})

	t.Run("entries are copies", func(t *testing.T) {
		in := mails(1)
		v := c.Compose(in, Owner)
		v.Entries[0].Mail.Payload.Data[0] = 0xff
		if in[0].Payload.Data[0] == 0xff {
			t.Error("entry shares the stored item's data")
		}
	})

	t.Run("custom layout", func(t *testing.T) {
		c := NewComposer(WithLocation(time.UTC), WithTimeLayout(time.Kitchen))
		v := c.Compose(mails(1), Owner)
		if v.Entries[0].ReceivedAt != "12:00PM" {
			t.Errorf("ReceivedAt = %q", v.Entries[0].ReceivedAt)
		}
	})
}

func TestComposeGrid(t *testing.T) {
	if v := ComposeGrid(); v.Size != MaxSlots || len(v.Entries) != 0 {
		t.Errorf("ComposeGrid = %+v", v)
	}
}

func TestRoleStrings(t *testing.T) {
	if Owner.String() != "owner" || Admin.String() != "admin" || Inspector.String() != "inspector" {
		t.Error("unexpected role names")
	}
	if HintDelete.String() == "" {
		t.Error("empty hint text")
	}
}
