package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/redis"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// CheckoutLocker adapts a redis.Lock to subscription.CheckoutLocker.
type CheckoutLocker struct {
	lock *redis.Lock
}

var _ subscription.CheckoutLocker = (*CheckoutLocker)(nil)

func NewCheckoutLocker(lock *redis.Lock) *CheckoutLocker {
	if lock == nil {
		panic("billing: lock is required")
	}
	return &CheckoutLocker{lock: lock}
}

func (l *CheckoutLocker) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := l.lock.Acquire(ctx, userID.String())
	if err != nil {
		return false, errors.Join(ErrLocker, err)
	}
	return ok, nil
}

// Release clears the user's pending checkout. It is also called when the
// purchase webhook lands, possibly on another replica, so it does not
// require ownership.
func (l *CheckoutLocker) Release(ctx context.Context, userID uuid.UUID) error {
	if err := l.lock.Delete(ctx, userID.String()); err != nil {
		return errors.Join(ErrLocker, err)
	}
	return nil
}
