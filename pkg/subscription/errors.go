package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is the kind shared by every "record is absent" error.
var ErrNotFound = errors.New("not found")

var (
	ErrPlanNotFound         = fmt.Errorf("subscription plan %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)

	ErrPlanNotAvailable     = errors.New("subscription plan is not available for purchase")
	ErrIntervalNotAvailable = errors.New("billing interval not available for plan")
	ErrMissingPriceID       = errors.New("plan has no processor price ID")
	ErrInvalidPlan          = errors.New("invalid subscription plan configuration")
	ErrFailedToLoadPlans    = errors.New("failed to load subscription plans")

	ErrAlreadySubscribed  = errors.New("user already has a live subscription")
	ErrCheckoutInProgress = errors.New("checkout already in progress for user")
	ErrAlreadyCanceled    = errors.New("subscription is already canceled")
	ErrInvalidTransition  = errors.New("invalid subscription state transition")

	ErrNoCounterRegistered        = errors.New("no usage counter registered for action")
	ErrFailedToCountResourceUsage = errors.New("failed to count resource usage")

	ErrPaymentProcessor = errors.New("payment processor error")
	ErrReconciliation   = errors.New("subscription reconciliation pending")

	ErrInvalidEvent  = errors.New("invalid processor event")
	ErrMissingUserID = errors.New("user ID is required")
)

// ProcessorError wraps a failed call to the payment processor.
// Callers may retry; when OutcomeUnknown is set the call may have taken effect
// remotely and the subscription should be re-read before retrying.
type ProcessorError struct {
	Op             string
	OutcomeUnknown bool
	Err            error
}

func newProcessorError(op string, err error) *ProcessorError {
	return &ProcessorError{
		Op:             op,
		OutcomeUnknown: errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		Err:            err,
	}
}

func (e *ProcessorError) Error() string {
	if e.OutcomeUnknown {
		return fmt.Sprintf("payment processor: %s: outcome unknown: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment processor: %s: %v", e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() []error {
	return []error{ErrPaymentProcessor, e.Err}
}

// ReconciliationError reports a remote change that succeeded while the local
// write failed. Only the local write may be retried.
type ReconciliationError struct {
	UserID uuid.UUID
	Op     Op
	Target bool // CancelAtPeriodEnd value the local row must reach
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("subscription %s for user %s applied remotely, local write failed: %v", e.Op, e.UserID, e.Err)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{ErrReconciliation, e.Err}
}

// IsRetryable reports whether err may be retried by the caller as-is.
func IsRetryable(err error) bool {
	var pe *ProcessorError
	if errors.As(err, &pe) {
		return !pe.OutcomeUnknown
	}
	return errors.Is(err, ErrReconciliation)
}
