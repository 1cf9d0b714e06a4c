package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/pg"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// UserStore reads accounts and counts the resources quota actions consume.
type UserStore struct {
	db  DB
	now func() time.Time
}

var _ subscription.UserStore = (*UserStore)(nil)

func NewUserStore(db DB) *UserStore {
	if db == nil {
		panic("billing: db is required")
	}
	return &UserStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *UserStore) GetUser(ctx context.Context, userID uuid.UUID) (*subscription.User, error) {
	u := &subscription.User{}
	err := s.db.QueryRow(ctx, `SELECT id, email, plan_id FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.PlanID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrUserNotFound
		}
		return nil, errors.Join(ErrFailedToLoadUser, err)
	}
	return u, nil
}

// CountProfiles counts the user's child profiles.
func (s *UserStore) CountProfiles(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM child_profiles WHERE user_id = $1`, userID)
}

// CountMemoriesThisMonth counts memories created since the start of the
// current calendar month in UTC.
func (s *UserStore) CountMemoriesThisMonth(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.count(ctx, `SELECT COUNT(*) FROM memories WHERE user_id = $1 AND created_at >= $2`, userID, monthStart)
}

// CountFamilyMembers counts the people the user shares the family space with.
func (s *UserStore) CountFamilyMembers(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM family_members WHERE owner_id = $1`, userID)
}

func (s *UserStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Join(ErrFailedToCountUsage, err)
	}
	return n, nil
}

// UsageCounters registers the store's counters with the subscription service.
func (s *UserStore) UsageCounters() []subscription.ServiceOption {
	return []subscription.ServiceOption{
		subscription.WithUsageCounter(subscription.ActionCreateProfile, s.CountProfiles),
		subscription.WithUsageCounter(subscription.ActionCreateMemory, s.CountMemoriesThisMonth),
		subscription.WithUsageCounter(subscription.ActionInviteFamilyMember, s.CountFamilyMembers),
	}
}
