package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/familykit/pkg/pg"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

type subscriptionRow struct {
	UserID            uuid.UUID  `db:"user_id"`
	PlanID            string     `db:"plan_id"`
	ProviderSubID     string     `db:"provider_sub_id"`
	Status            string     `db:"status"`
	CancelAtPeriodEnd bool       `db:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `db:"current_period_end"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	CanceledAt        *time.Time `db:"canceled_at"`
}

// SubscriptionStore persists one subscription row per user.
type SubscriptionStore struct {
	db DB
}

var _ subscription.SubscriptionStore = (*SubscriptionStore)(nil)

func NewSubscriptionStore(db DB) *SubscriptionStore {
	if db == nil {
		panic("billing: db is required")
	}
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, plan_id, provider_sub_id, status,
		cancel_at_period_end, current_period_end, created_at, updated_at, canceled_at
		FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadSubscription, err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[subscriptionRow])
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, errors.Join(ErrFailedToLoadSubscription, err)
	}
	return &subscription.Subscription{
		UserID:            r.UserID,
		PlanID:            r.PlanID,
		ProviderSubID:     r.ProviderSubID,
		Status:            subscription.Status(r.Status),
		CancelAtPeriodEnd: r.CancelAtPeriodEnd,
		CurrentPeriodEnd:  utcPtr(r.CurrentPeriodEnd),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
		CanceledAt:        utcPtr(r.CanceledAt),
	}, nil
}

// Save upserts the row keyed by user. A subscription for an unknown user
// fails with subscription.ErrUserNotFound.
func (s *SubscriptionStore) Save(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.db.Exec(ctx, `INSERT INTO subscriptions (user_id, plan_id, provider_sub_id, status,
			cancel_at_period_end, current_period_end, created_at, updated_at, canceled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			provider_sub_id = EXCLUDED.provider_sub_id,
			status = EXCLUDED.status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at,
			canceled_at = EXCLUDED.canceled_at`,
		sub.UserID, sub.PlanID, sub.ProviderSubID, string(sub.Status),
		sub.CancelAtPeriodEnd, sub.CurrentPeriodEnd, sub.CreatedAt, sub.UpdatedAt, sub.CanceledAt,
	)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return errors.Join(ErrFailedToSaveSubscription, subscription.ErrUserNotFound, err)
		}
		return errors.Join(ErrFailedToSaveSubscription, err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
