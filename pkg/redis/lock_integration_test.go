//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/familykit/pkg/redis"
)

func startRedis(t *testing.T) string {
	t.Helper()
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
	return "redis://" + endpoint + "/0"
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: startRedis(t), RetryAttempts: 5, RetryInterval: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, redis.Healthcheck(client)(ctx))

	first := redis.NewLock(client, "test:", time.Minute)
	second := redis.NewLock(client, "test:", time.Minute)

	ok, err := first.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "held by first")

	require.NoError(t, second.Release(ctx, "user-1"))
	ok, err = second.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-owner is a no-op")

	require.NoError(t, first.Release(ctx, "user-1"))
	ok, err = second.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, first.Delete(ctx, "user-1"))
	ok, err = first.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "delete removes a key held by another lock")
}
