// Package store defines the persistence contract for per-user mailboxes.
// Implementations live in store/sqlstore, store/document, store/mongo and
// store/memory; store/otel wraps any of them with telemetry.
//
// A backend persists the full mailbox of one user at a time. Every Save is a
// complete overwrite of that user's durable state, so a later Save always wins
// over an earlier one. Backends do not merge.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Store is the storage interface for mailboxes.
//
// All operations must be safe for concurrent use. Load returns an empty,
// non-nil slice when the user has no durable record.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Load returns the durable mailbox of one user.
	Load(ctx context.Context, user uuid.UUID) ([]Mail, error)

	// LoadAll enumerates every durable mailbox. Records whose user identity
	// or content cannot be decoded are skipped and logged, never fatal.
	LoadAll(ctx context.Context) (map[uuid.UUID][]Mail, error)

	// Save overwrites the durable mailbox of one user with mails.
	Save(ctx context.Context, user uuid.UUID, mails []Mail) error

	// SaveAll saves every mailbox in the map.
	SaveAll(ctx context.Context, all map[uuid.UUID][]Mail) error
}

// SaveEach saves every mailbox in all through s.Save and joins the failures.
// Backends without a cheaper bulk path use it to implement SaveAll.
func SaveEach(ctx context.Context, s Store, all map[uuid.UUID][]Mail) error {
	var errs []error
	for user, mails := range all {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Save(ctx, user, mails); err != nil {
			errs = append(errs, &UserError{User: user, Err: err})
		}
	}
	return errors.Join(errs...)
}

// ValidUser returns ErrInvalidUser for the nil UUID.
func ValidUser(user uuid.UUID) error {
	if user == uuid.Nil {
		return ErrInvalidUser
	}
	return nil
}
