//go:build integration

package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/familykit/pkg/redis"
	"github.com/dmitrymomot/familykit/pkg/subscription"
	"github.com/dmitrymomot/familykit/svc/billing"
)

func TestRedisJournalAndLocker(t *testing.T) {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://" + endpoint + "/0", RetryAttempts: 5, RetryInterval: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	t.Run("journal", func(t *testing.T) {
		j := billing.NewRedisJournal(client, "test:reconcile:", time.Hour)
		userID := uuid.New()

		w, err := j.Pending(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, w)

		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, j.Record(ctx, subscription.PendingWrite{
			UserID:            userID,
			Op:                subscription.OpCancel,
			ProviderSubID:     "sub_01",
			Status:            subscription.StatusActive,
			CancelAtPeriodEnd: true,
			CurrentPeriodEnd:  &end,
			RecordedAt:        end.Add(-time.Hour),
		}))

		w, err = j.Pending(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, subscription.OpCancel, w.Op)
		assert.True(t, w.CancelAtPeriodEnd)
		require.NotNil(t, w.CurrentPeriodEnd)
		assert.True(t, w.CurrentPeriodEnd.Equal(end))

		ttl, err := client.TTL(ctx, "test:reconcile:"+userID.String()).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)

		require.NoError(t, j.Clear(ctx, userID))
		w, err = j.Pending(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("checkout locker", func(t *testing.T) {
		first := billing.NewCheckoutLocker(redis.NewLock(client, "test:checkout:", time.Minute))
		second := billing.NewCheckoutLocker(redis.NewLock(client, "test:checkout:", time.Minute))
		userID := uuid.New()

		ok, err := first.Acquire(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = second.Acquire(ctx, userID)
		require.NoError(t, err)
		assert.False(t, ok)

		// the confirming webhook may be handled by another replica
		require.NoError(t, second.Release(ctx, userID))
		ok, err = second.Acquire(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, first.Release(ctx, userID))
		ok, err = first.Acquire(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
