package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

func TestSubscription_GracePeriod(t *testing.T) {
	t.Parallel()

	periodEnd := fixedNow.Add(72 * time.Hour)

	tests := []struct {
		name  string
		sub   subscription.Subscription
		grace bool
		days  int
	}{
		{
			name:  "active without cancellation",
			sub:   subscription.Subscription{Status: subscription.StatusActive, CurrentPeriodEnd: &periodEnd},
			grace: false,
			days:  3,
		},
		{
			name:  "cancellation pending",
			sub:   subscription.Subscription{Status: subscription.StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: &periodEnd},
			grace: true,
			days:  3,
		},
		{
			name:  "period already over",
			sub:   subscription.Subscription{Status: subscription.StatusActive, CancelAtPeriodEnd: true, CurrentPeriodEnd: ptrTime(fixedNow.Add(-time.Hour))},
			grace: false,
			days:  0,
		},
		{
			name:  "unknown period end",
			sub:   subscription.Subscription{Status: subscription.StatusTrialing, CancelAtPeriodEnd: true},
			grace: true,
			days:  0,
		},
		{
			name:  "canceled",
			sub:   subscription.Subscription{Status: subscription.StatusCanceled, CurrentPeriodEnd: &periodEnd},
			grace: false,
			days:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.grace, tt.sub.InGracePeriodAt(fixedNow))
			assert.Equal(t, tt.days, tt.sub.DaysUntilPeriodEndAt(fixedNow))
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.StatusActive.IsLive())
	assert.True(t, subscription.StatusTrialing.IsLive())
	assert.False(t, subscription.StatusPastDue.IsLive())
	assert.False(t, subscription.StatusCanceled.IsLive())
	assert.False(t, subscription.Status("paused").Valid())
	assert.True(t, subscription.StatusPastDue.Valid())
}

func TestContext_UserID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := subscription.GetUserIDFromContext(ctx)
	assert.False(t, ok)

	_, ok = subscription.GetUserIDFromContext(subscription.SetUserIDToContext(ctx, uuid.Nil))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := subscription.GetUserIDFromContext(subscription.SetUserIDToContext(ctx, id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("processor error", func(t *testing.T) {
		t.Parallel()
		err := error(&subscription.ProcessorError{Op: "cancel", Err: errors.New("boom")})
		assert.ErrorIs(t, err, subscription.ErrPaymentProcessor)
		assert.True(t, subscription.IsRetryable(err))

		unknown := error(&subscription.ProcessorError{Op: "cancel", OutcomeUnknown: true, Err: context.DeadlineExceeded})
		assert.ErrorIs(t, unknown, context.DeadlineExceeded)
		assert.False(t, subscription.IsRetryable(unknown))
		assert.Contains(t, unknown.Error(), "outcome unknown")
	})

	t.Run("reconciliation error", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("db down")
		err := error(&subscription.ReconciliationError{UserID: uuid.New(), Op: subscription.OpCancel, Target: true, Err: cause})
		assert.ErrorIs(t, err, subscription.ErrReconciliation)
		assert.ErrorIs(t, err, cause)
		assert.True(t, subscription.IsRetryable(err))
	})

	t.Run("not found kinds", func(t *testing.T) {
		t.Parallel()
		for _, err := range []error{subscription.ErrPlanNotFound, subscription.ErrUserNotFound, subscription.ErrSubscriptionNotFound} {
			assert.ErrorIs(t, err, subscription.ErrNotFound)
		}
		assert.False(t, subscription.IsRetryable(subscription.ErrPlanNotFound))
	})
}
