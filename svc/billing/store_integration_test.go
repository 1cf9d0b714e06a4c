//go:build integration

package billing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/familykit/migrations"
	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/pg"
	"github.com/dmitrymomot/familykit/pkg/subscription"
	"github.com/dmitrymomot/familykit/svc/billing"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("familykit"),
		postgres.WithUsername("familykit"),
		postgres.WithPassword("familykit"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := pg.Config{
		ConnectionString: dsn,
		MaxOpenConns:     5,
		MaxIdleConns:     1,
		RetryAttempts:    5,
		RetryInterval:    time.Second,
		MigrationsTable:  "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, migrations.FS, logger.Discard()))
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool, planID string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO users (id, email, plan_id) VALUES ($1, $2, $3)`,
		id, id.String()+"@example.com", planID)
	require.NoError(t, err)
	return id
}

func TestPostgresStores(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	catalogue, err := billing.LoadPlans(strings.NewReader(catalogueYAML))
	require.NoError(t, err)
	require.NoError(t, billing.SeedPlans(ctx, pool, catalogue))
	require.NoError(t, billing.SeedPlans(ctx, pool, catalogue), "seeding is idempotent")

	plans := billing.NewPlanStore(pool)
	subs := billing.NewSubscriptionStore(pool)
	users := billing.NewUserStore(pool)

	t.Run("plans", func(t *testing.T) {
		active, err := plans.ListActive(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(active))
		for _, p := range active {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"free", "basic", "premium"}, ids)

		premium, err := plans.Get(ctx, "premium")
		require.NoError(t, err)
		assert.True(t, premium.ProfilesUnlimited())
		require.NotNil(t, premium.YearlyPrice)
		assert.Equal(t, int64(9999), premium.YearlyPrice.Amount)

		legacy, err := plans.Get(ctx, "legacy")
		require.NoError(t, err)
		assert.False(t, legacy.IsActive)

		_, err = plans.Get(ctx, "gold")
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)
	})

	t.Run("users and usage", func(t *testing.T) {
		userID := seedUser(t, pool, "free")

		u, err := users.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "free", u.PlanID)

		_, err = users.GetUser(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrUserNotFound)

		profileID := uuid.New()
		_, err = pool.Exec(ctx, `INSERT INTO child_profiles (id, user_id, name) VALUES ($1, $2, 'Mia')`, profileID, userID)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `INSERT INTO memories (id, user_id, profile_id) VALUES ($1, $2, $3), ($4, $2, $3)`,
			uuid.New(), userID, profileID, uuid.New())
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `INSERT INTO memories (id, user_id, created_at) VALUES ($1, $2, NOW() - INTERVAL '45 days')`,
			uuid.New(), userID)
		require.NoError(t, err)

		n, err := users.CountProfiles(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = users.CountMemoriesThisMonth(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = users.CountFamilyMembers(ctx, userID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("subscription upsert", func(t *testing.T) {
		userID := seedUser(t, pool, "free")

		_, err := subs.Get(ctx, userID)
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

		now := time.Now().UTC().Truncate(time.Microsecond)
		end := now.Add(30 * 24 * time.Hour)
		sub := &subscription.Subscription{
			UserID:           userID,
			PlanID:           "premium",
			ProviderSubID:    "sub_01",
			Status:           subscription.StatusActive,
			CurrentPeriodEnd: &end,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		require.NoError(t, subs.Save(ctx, sub))

		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, subs.Save(ctx, sub))

		got, err := subs.Get(ctx, userID)
		require.NoError(t, err)
		assert.True(t, got.CancelAtPeriodEnd)
		assert.Equal(t, subscription.StatusActive, got.Status)
		assert.True(t, got.CreatedAt.Equal(now))
		require.NotNil(t, got.CurrentPeriodEnd)
		assert.True(t, got.CurrentPeriodEnd.Equal(end))
		assert.Nil(t, got.CanceledAt)

		orphan := *sub
		orphan.UserID = uuid.New()
		assert.ErrorIs(t, subs.Save(ctx, &orphan), subscription.ErrUserNotFound)
	})

	t.Run("service over postgres", func(t *testing.T) {
		userID := seedUser(t, pool, "free")
		proc := &mockProcessor{}
		svc := subscription.NewService(plans, subs, users, proc,
			append(users.UsageCounters(), subscription.WithFreePlan("free"))...)

		d, err := svc.Check(ctx, userID, subscription.ActionCreateProfile)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(1), d.Limit)

		_, err = pool.Exec(ctx, `INSERT INTO child_profiles (id, user_id, name) VALUES ($1, $2, 'Leo')`, uuid.New(), userID)
		require.NoError(t, err)

		d, err = svc.Check(ctx, userID, subscription.ActionCreateProfile)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, subscription.ReasonProfileLimit, d.Reason)
	})
}
