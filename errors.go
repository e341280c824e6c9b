package mailbox

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

// Sentinel errors for the mailbox package.
// Use errors.Is() to check for these errors.
var (
	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("mailbox: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("mailbox: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("mailbox: %w", store.ErrAlreadyConnected)

	// ErrInvalidUser is returned for the nil user identity.
	// Wraps store.ErrInvalidUser for consistent error checking.
	ErrInvalidUser = fmt.Errorf("mailbox: %w", store.ErrInvalidUser)

	// ErrInvalidPayload is returned for payload validation failures.
	ErrInvalidPayload = errors.New("mailbox: invalid payload")

	// ErrSaveFailed is returned by SaveAll when at least one mailbox could
	// not be written. In-memory state is unaffected.
	ErrSaveFailed = errors.New("mailbox: save failed")

	// ErrLoadFailed is returned when a mailbox could not be read from the
	// backend. The user is not made resident, so a later call retries.
	ErrLoadFailed = errors.New("mailbox: load failed")

	// ErrDeliveryRejected is returned when a plugin vetoes a delivery.
	ErrDeliveryRejected = errors.New("mailbox: delivery rejected")
)

// PersistError is returned when a mutation succeeded in memory but the
// write-through save failed. The in-memory mailbox remains authoritative and
// the next successful save of the user persists it.
type PersistError struct {
	User uuid.UUID
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("mailbox: persist %s: %v", e.User, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError checks if the error is a persist error and returns details.
// The operation that returned it took effect in memory.
func IsPersistError(err error) (*PersistError, bool) {
	var pe *PersistError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mailbox: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}

// EventPublishError is returned when event publishing fails but the
// operation succeeded.
type EventPublishError struct {
	Event string    // The event name (e.g., "MailDelivered")
	User  uuid.UUID // The mailbox owner the event was for
	Err   error     // The underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("mailbox: event %s publish failed for %s: %v", e.Event, e.User, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// Error checking helpers.

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func IsInvalidUser(err error) bool {
	return errors.Is(err, ErrInvalidUser)
}

func IsLoadFailed(err error) bool {
	return errors.Is(err, ErrLoadFailed)
}
