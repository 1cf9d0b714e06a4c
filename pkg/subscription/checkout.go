package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/logger"
)

// StartCheckout creates a processor checkout session for the plan.
// No local subscription is written: the row is created when the processor
// confirms payment (see ApplyEvent).
func (s *service) StartCheckout(ctx context.Context, userID uuid.UUID, planID string, opts CheckoutOptions) (_ *CheckoutSession, retErr error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanNotAvailable
	}
	priceID, err := plan.PriceIDFor(opts.Interval)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The lock spans the live-subscription check and outlives a successful
	// call: it is released when the processor confirms the purchase or
	// expires by TTL, so a second checkout cannot start in between.
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
		}
		if !acquired {
			return nil, ErrCheckoutInProgress
		}
		defer func() {
			if retErr != nil {
				s.releaseCheckoutLock(ctx, userID)
			}
		}()
	}

	// One live subscription per user; a second one would be billed twice.
	if existing, err := s.store.Get(ctx, userID); err == nil {
		if existing.IsLive() {
			return nil, ErrAlreadySubscribed
		}
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	session, err := s.processor.CreateCheckout(ctx, CheckoutRequest{
		PriceID:    priceID,
		Email:      user.Email,
		SuccessURL: opts.SuccessURL,
		CancelURL:  opts.CancelURL,
		Metadata: map[string]string{
			MetadataUserID: userID.String(),
			MetadataPlanID: plan.ID,
		},
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout creation failed",
			logger.UserID(userID),
			logger.PlanID(plan.ID),
			logger.Error(err),
		)
		return nil, newProcessorError("create_checkout", err)
	}

	s.log.InfoContext(ctx, "checkout started",
		logger.UserID(userID),
		logger.PlanID(plan.ID),
		slog.String("session_id", session.SessionID),
	)
	return session, nil
}

func (s *service) releaseCheckoutLock(ctx context.Context, userID uuid.UUID) {
	if s.locker == nil {
		return
	}
	if err := s.locker.Release(context.WithoutCancel(ctx), userID); err != nil {
		s.log.WarnContext(ctx, "failed to release checkout lock",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}
