package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Errors shared by every backend.
var (
	// ErrNotFound is returned by buckets when a key does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidUser is returned for the nil user identity.
	ErrInvalidUser = errors.New("store: invalid user")

	// ErrNotConnected is returned by every operation before Connect or after
	// Close.
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrMalformedRecord is returned when a durable record cannot be decoded.
	ErrMalformedRecord = errors.New("store: malformed record")

	// ErrTransactionFailed means a relational Save rolled back; the user's
	// previous rows are intact.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// UserError attaches the affected user to a backend failure.
type UserError struct {
	User uuid.UUID
	Err  error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("store: user %s: %v", e.User, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
