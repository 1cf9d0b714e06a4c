package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the local record of a user's subscription.
// Each user has at most one row; it is a cache of the processor's state.
type Subscription struct {
	UserID            uuid.UUID // primary key - one subscription per user
	PlanID            string
	ProviderSubID     string
	Status            Status
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time // when a pending cancellation takes effect
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CanceledAt        *time.Time
}

func (s *Subscription) IsLive() bool {
	return s.Status.IsLive()
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// InGracePeriodAt reports whether cancellation was requested but the paid
// period has not elapsed yet at the given time.
func (s *Subscription) InGracePeriodAt(now time.Time) bool {
	if !s.IsLive() || !s.CancelAtPeriodEnd {
		return false
	}
	if s.CurrentPeriodEnd == nil {
		return true
	}
	return now.Before(*s.CurrentPeriodEnd)
}

// InGracePeriod is InGracePeriodAt for the current time.
func (s *Subscription) InGracePeriod() bool {
	return s.InGracePeriodAt(time.Now().UTC())
}

// DaysUntilPeriodEndAt returns whole days left until CurrentPeriodEnd, rounded
// to the nearest day. Returns 0 when no period end is known or it has passed.
func (s *Subscription) DaysUntilPeriodEndAt(now time.Time) int {
	if s.CurrentPeriodEnd == nil {
		return 0
	}
	remaining := s.CurrentPeriodEnd.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24 + 0.5)
}

// clone returns a copy that does not share time pointers with s.
func (s *Subscription) clone() *Subscription {
	c := *s
	if s.CurrentPeriodEnd != nil {
		t := *s.CurrentPeriodEnd
		c.CurrentPeriodEnd = &t
	}
	if s.CanceledAt != nil {
		t := *s.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}
