package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// OperationResult contains the result of delivering to one user within a
// bulk delivery.
type OperationResult struct {
	// User is the recipient.
	User uuid.UUID
	// Success indicates the item is in the user's mailbox. It stays true
	// when only the write-through save failed.
	Success bool
	// Error is the delivery or persist error, nil if fully successful.
	Error error
	// Mail is the delivered item (only if successful).
	Mail store.Mail
}

// BulkResult contains the result of a bulk delivery.
// Results are ordered by user identity.
type BulkResult struct {
	Results []OperationResult
}

// SuccessCount returns the number of users that received the item.
func (r *BulkResult) SuccessCount() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, res := range r.Results {
		if res.Success {
			count++
		}
	}
	return count
}

// FailureCount returns the number of users that did not receive the item.
func (r *BulkResult) FailureCount() int {
	if r == nil {
		return 0
	}
	return len(r.Results) - r.SuccessCount()
}

// HasFailures returns true if any user did not receive the item.
func (r *BulkResult) HasFailures() bool {
	return r.FailureCount() > 0
}

// TotalCount returns the total number of users processed.
func (r *BulkResult) TotalCount() int {
	if r == nil {
		return 0
	}
	return len(r.Results)
}

// FailedUsers returns the users that did not receive the item.
func (r *BulkResult) FailedUsers() []uuid.UUID {
	if r == nil {
		return nil
	}
	var users []uuid.UUID
	for _, res := range r.Results {
		if !res.Success {
			users = append(users, res.User)
		}
	}
	return users
}

// Err returns an error if any result carries one, nil otherwise.
func (r *BulkResult) Err() error {
	if r == nil {
		return nil
	}
	for _, res := range r.Results {
		if res.Error != nil {
			return &BulkOperationError{Result: r}
		}
	}
	return nil
}

// BulkOperationError is returned when a bulk delivery has partial failures.
type BulkOperationError struct {
	Result *BulkResult
}

func (e *BulkOperationError) Error() string {
	n := 0
	for _, r := range e.Result.Results {
		if r.Error != nil {
			n++
		}
	}
	return fmt.Sprintf("mailbox: bulk delivery failed for %d of %d users", n, e.Result.TotalCount())
}

// Unwrap returns the individual errors from failed deliveries.
func (e *BulkOperationError) Unwrap() []error {
	var errs []error
	for _, r := range e.Result.Results {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	return errs
}

// DeliverAll delivers a copy of payload to every resident user, online or
// not. Users who have never been loaded are not reached.
//
// The returned error is non-nil only when the delivery could not start;
// per-user failures are in the result (see BulkResult.Err).
func (s *service) DeliverAll(ctx context.Context, payload store.Payload) (*BulkResult, error) {
	if err := validatePayload(payload, s.opts); err != nil {
		return nil, err
	}
	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	users := s.Users()
	sortUsers(users)

	ctx, endSpan := s.otel.startSpan(ctx, "mailbox.DeliverAll",
		attribute.String("kind", payload.Kind),
		attribute.Int("users", len(users)),
	)

	start := time.Now()
	result := &BulkResult{Results: make([]OperationResult, len(users))}

	var g errgroup.Group
	g.SetLimit(s.opts.saveConcurrency)
	for i, user := range users {
		g.Go(func() error {
			mail, err := s.deliver(ctx, user, payload)
			res := OperationResult{User: user, Error: err}
			if _, persistOnly := IsPersistError(err); err == nil || persistOnly {
				res.Success = true
				res.Mail = mail
			}
			result.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	err = result.Err()
	endSpan(err)
	s.logger.Info("bulk delivery complete",
		"kind", payload.Kind,
		"users", result.TotalCount(),
		"failed", result.FailureCount(),
		"duration", time.Since(start),
	)
	return result, nil
}
