package mailbox

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"not connected", ErrNotConnected, store.ErrNotConnected},
		{"already connected", ErrAlreadyConnected, store.ErrAlreadyConnected},
		{"invalid user", ErrInvalidUser, store.ErrInvalidUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("expected %v to wrap %v", tt.err, tt.target)
			}
		})
	}

	if !IsNotConnected(fmt.Errorf("load: %w", ErrNotConnected)) {
		t.Error("IsNotConnected should see through wrapping")
	}
	if !IsInvalidUser(ErrInvalidUser) {
		t.Error("IsInvalidUser should match")
	}
	if !IsLoadFailed(fmt.Errorf("%w: disk", ErrLoadFailed)) {
		t.Error("IsLoadFailed should see through wrapping")
	}
}

func TestPersistError(t *testing.T) {
	user := uuid.New()
	cause := errors.New("disk full")
	err := fmt.Errorf("deliver: %w", &PersistError{User: user, Err: cause})

	pe, ok := IsPersistError(err)
	if !ok {
		t.Fatal("expected persist error")
	}
	if pe.User != user {
		t.Errorf("expected user %s, got %s", user, pe.User)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if !strings.Contains(pe.Error(), user.String()) {
		t.Errorf("expected message to name the user, got %q", pe.Error())
	}

	if _, ok := IsPersistError(cause); ok {
		t.Error("plain error reported as persist error")
	}
	if _, ok := IsPersistError(nil); ok {
		t.Error("nil reported as persist error")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "kind", Message: "must not be empty"}
	want := "mailbox: validation failed for kind: must not be empty"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, ErrInvalidPayload) {
		t.Error("expected ErrInvalidPayload")
	}
}

func TestEventPublishError(t *testing.T) {
	user := uuid.New()
	cause := errors.New("stream closed")
	err := &EventPublishError{Event: "MailDelivered", User: user, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if !strings.Contains(err.Error(), "MailDelivered") {
		t.Errorf("expected event name in %q", err.Error())
	}
}

func TestPluginError(t *testing.T) {
	cause := errors.New("quota")
	err := &PluginError{Plugin: "limits", Op: "before deliver", Err: cause}
	want := "plugin limits before deliver: quota"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
}

func TestBulkResult(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	persist := &PersistError{User: b, Err: errors.New("timeout")}
	r := &BulkResult{Results: []OperationResult{
		{User: a, Success: true},
		{User: b, Success: true, Error: persist},
		{User: c, Error: ErrLoadFailed},
	}}

	if r.TotalCount() != 3 {
		t.Errorf("expected 3 total, got %d", r.TotalCount())
	}
	if r.SuccessCount() != 2 {
		t.Errorf("expected 2 successes, got %d", r.SuccessCount())
	}
	if r.FailureCount() != 1 || !r.HasFailures() {
		t.Errorf("expected 1 failure, got %d", r.FailureCount())
	}
	if failed := r.FailedUsers(); len(failed) != 1 || failed[0] != c {
		t.Errorf("expected failed users [%s], got %v", c, failed)
	}

	err := r.Err()
	var be *BulkOperationError
	if !errors.As(err, &be) {
		t.Fatalf("expected BulkOperationError, got %v", err)
	}
	if want := "mailbox: bulk delivery failed for 2 of 3 users"; be.Error() != want {
		t.Errorf("expected %q, got %q", want, be.Error())
	}

	var nilResult *BulkResult
	if nilResult.TotalCount() != 0 || nilResult.Err() != nil || nilResult.FailedUsers() != nil {
		t.Error("nil result should be empty")
	}
	if (&BulkResult{Results: []OperationResult{{User: a, Success: true}}}).Err() != nil {
		t.Error("expected no error for a clean result")
	}
}
