package subscription

import (
	"context"

	"github.com/google/uuid"
)

// PlanRegistry is the read-only catalogue of billing plans.
type PlanRegistry interface {
	// ListActive returns every plan that can be newly purchased.
	ListActive(ctx context.Context) ([]Plan, error)

	// Get returns a plan by ID, including inactive plans.
	// Returns ErrPlanNotFound if the plan does not exist.
	Get(ctx context.Context, planID string) (*Plan, error)
}

// SubscriptionStore defines the interface for subscription persistence.
// Each user has exactly one subscription row, so UserID serves as the primary key.
type SubscriptionStore interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Save creates or updates a subscription keyed by UserID.
	Save(ctx context.Context, subscription *Subscription) error
}

// UserStore resolves the users subscriptions belong to.
type UserStore interface {
	// GetUser returns ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
}

// UsageCounter returns the live usage for a quota action.
// It is called on every check and must never be served from a cache.
type UsageCounter func(ctx context.Context, userID uuid.UUID) (int64, error)

// CheckoutLocker serialises concurrent checkouts for a single user.
type CheckoutLocker interface {
	// Acquire returns false if another checkout holds the lock.
	Acquire(ctx context.Context, userID uuid.UUID) (bool, error)
	Release(ctx context.Context, userID uuid.UUID) error
}

// Notifier is told about committed subscription changes.
// Implementations must not block for long; errors are logged and ignored.
type Notifier interface {
	SubscriptionChanged(ctx context.Context, change Change) error
}

// Change describes a committed subscription change.
type Change struct {
	Op           Op
	Subscription *Subscription
}
