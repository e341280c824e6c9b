package store

import (
	"slices"
	"time"
)

// Payload is an opaque item representation. The mailbox never interprets
// Data; the host serializes items into it through a codec identified by
// ContentType.
type Payload struct {
	// Kind is the item identity, e.g. "DIAMOND_SWORD".
	Kind        string `json:"kind" bson:"kind"`
	ContentType string `json:"content_type,omitempty" bson:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty" bson:"data,omitempty"`
}

// IsEmpty reports whether p carries no item.
func (p Payload) IsEmpty() bool {
	return p.Kind == "" && len(p.Data) == 0
}

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	c := p
	if p.Data != nil {
		c.Data = slices.Clone(p.Data)
	}
	return c
}

// Mail is one delivered item waiting in a user's mailbox.
type Mail struct {
	Payload Payload `json:"item" bson:"item"`
	// Timestamp is the receipt time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp" bson:"timestamp"`
	// Read is persisted but no operation currently sets it.
	Read bool `json:"isRead" bson:"is_read"`
}

// NewMail creates an unread mail received at t.
func NewMail(p Payload, t time.Time) Mail {
	return Mail{Payload: p.Clone(), Timestamp: t.UnixMilli()}
}

// ReceivedAt returns the receipt time.
func (m Mail) ReceivedAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Clone returns a deep copy of m.
func (m Mail) Clone() Mail {
	m.Payload = m.Payload.Clone()
	return m
}

// CloneMails deep-copies a mailbox. The result is never nil.
func CloneMails(mails []Mail) []Mail {
	out := make([]Mail, len(mails))
	for i, m := range mails {
		out[i] = m.Clone()
	}
	return out
}

// CountUnread returns the number of mails not marked read.
func CountUnread(mails []Mail) int {
	n := 0
	for _, m := range mails {
		if !m.Read {
			n++
		}
	}
	return n
}
