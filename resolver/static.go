// Package resolver maps player names to identities.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownPlayer is returned when a name or identity has never been seen.
var ErrUnknownPlayer = errors.New("resolver: unknown player")

// Resolver looks players up by name and by identity.
type Resolver interface {
	// Lookup returns the identity for a player name. Names match
	// case-insensitively.
	Lookup(ctx context.Context, name string) (uuid.UUID, error)
	// Name returns the last known name for an identity.
	Name(ctx context.Context, id uuid.UUID) (string, error)
}

// Static is a map-based Resolver. The host feeds it with Remember as players
// join, so offline players stay resolvable for the process lifetime.
// Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	byName map[string]uuid.UUID
	byID   map[uuid.UUID]string
}

var _ Resolver = (*Static)(nil)

// NewStatic creates a Static resolver seeded from a name to identity map.
// The map is copied.
func NewStatic(players map[string]uuid.UUID) *Static {
	s := &Static{
		byName: make(map[string]uuid.UUID, len(players)),
		byID:   make(map[uuid.UUID]string, len(players)),
	}
	for name, id := range players {
		s.Remember(name, id)
	}
	return s
}

// Remember records that id currently goes by name. A renamed player's old
// name stops resolving.
func (s *Static) Remember(name string, id uuid.UUID) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || id == uuid.Nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[id]; ok {
		delete(s.byName, strings.ToLower(old))
	}
	s.byName[key] = id
	s.byID[id] = strings.TrimSpace(name)
}

// Lookup returns the identity for name.
func (s *Static) Lookup(_ context.Context, name string) (uuid.UUID, error) {
	s.mu.RLock()
	id, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	s.mu.RUnlock()
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	return id, nil
}

// Name returns the last remembered name for id.
func (s *Static) Name(_ context.Context, id uuid.UUID) (string, error) {
	s.mu.RLock()
	name, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	return name, nil
}
