package mailbox

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// IsResident reports whether the user's mailbox is in memory.
func (s *service) IsResident(user uuid.UUID) bool {
	return s.resident(user) != nil
}

// Users returns the resident users.
func (s *service) Users() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]uuid.UUID, 0, len(s.mailboxes))
	for user := range s.mailboxes {
		users = append(users, user)
	}
	return users
}

// Len returns the number of items in the user's mailbox.
func (s *service) Len(user uuid.UUID) int {
	mb := s.resident(user)
	if mb == nil {
		return 0
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.mails)
}

// Mails returns a copy of the user's mailbox, newest first.
func (s *service) Mails(user uuid.UUID) []store.Mail {
	mb := s.resident(user)
	if mb == nil {
		return []store.Mail{}
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return store.CloneMails(mb.mails)
}

// Mail returns a copy of the item at index.
func (s *service) Mail(user uuid.UUID, index int) (store.Mail, bool) {
	mb := s.resident(user)
	if mb == nil {
		return store.Mail{}, false
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if index < 0 || index >= len(mb.mails) {
		return store.Mail{}, false
	}
	return mb.mails[index].Clone(), true
}

// UnreadCount returns the number of unread items in the user's mailbox.
func (s *service) UnreadCount(user uuid.UUID) int {
	mb := s.resident(user)
	if mb == nil {
		return 0
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return store.CountUnread(mb.mails)
}

func sortUsers(users []uuid.UUID) {
	slices.SortFunc(users, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
}
