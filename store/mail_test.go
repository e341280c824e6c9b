package store

import (
	"testing"
	"time"
)

func TestMail_CloneIsDeep(t *testing.T) {
	m := NewMail(Payload{Kind: "BOW", Data: []byte{1, 2, 3}}, time.UnixMilli(1000))
	c := m.Clone()
	c.Payload.Data[0] = 9
	if m.Payload.Data[0] != 1 {
		t.Error("Clone shares payload bytes")
	}
	if m.ReceivedAt() != time.UnixMilli(1000) {
		t.Errorf("ReceivedAt = %v", m.ReceivedAt())
	}
	if m.Read {
		t.Error("new mail should be unread")
	}
}

func TestCloneMails_NeverNil(t *testing.T) {
	if got := CloneMails(nil); got == nil {
		t.Error("CloneMails(nil) returned nil")
	}
}

func TestCountUnread(t *testing.T) {
	mails := []Mail{{}, {Read: true}, {}}
	if got := CountUnread(mails); got != 2 {
		t.Errorf("CountUnread = %d, want 2", got)
	}
}

func TestPayload_IsEmpty(t *testing.T) {
	if !(Payload{}).IsEmpty() {
		t.Error("zero payload should be empty")
	}
	if (Payload{Kind: "AIR"}).IsEmpty() {
		t.Error("payload with kind should not be empty")
	}
}
