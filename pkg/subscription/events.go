package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/logger"
)

// HandleWebhook verifies and applies a processor confirmation event.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	return s.ApplyEvent(ctx, *event)
}

// ApplyEvent mirrors a processor event into the subscription store. This is
// the only path that creates subscription rows and moves them to canceled.
// Unknown event types are ignored.
func (s *service) ApplyEvent(ctx context.Context, event ProcessorEvent) error {
	log := s.log.With(
		slog.String("event_type", string(event.Type)),
		slog.String("provider_event", event.ProviderEvent),
		logger.SubscriptionID(event.SubscriptionID),
	)

	switch event.Type {
	case EventSubscriptionCreated:
		return s.confirmCheckout(ctx, log, event)
	case EventSubscriptionUpdated:
		return s.applyUpdate(ctx, log, event)
	case EventSubscriptionCanceled:
		return s.applyTransition(ctx, log, event, evLapse)
	case EventPaymentFailed:
		return s.applyTransition(ctx, log, event, evPaymentFailed)
	case EventPaymentSucceeded:
		return s.applyTransition(ctx, log, event, evPaymentSucceeded)
	default:
		log.DebugContext(ctx, "ignoring processor event")
		return nil
	}
}

func (s *service) confirmCheckout(ctx context.Context, log *slog.Logger, event ProcessorEvent) error {
	userID, err := eventUserID(event)
	if err != nil {
		return err
	}
	if event.SubscriptionID == "" {
		return fmt.Errorf("%w: missing subscription id", ErrInvalidEvent)
	}
	if event.PlanID == "" {
		return fmt.Errorf("%w: missing plan id", ErrInvalidEvent)
	}
	if _, err := s.plans.Get(ctx, event.PlanID); err != nil {
		return err
	}

	existing, err := s.store.Get(ctx, userID)
	switch {
	case err == nil && existing.ProviderSubID == event.SubscriptionID:
		// redelivered
		return s.applyUpdate(ctx, log, event)
	case err == nil && existing.IsLive():
		log.WarnContext(ctx, "replacing live subscription with a newer processor subscription",
			logger.UserID(userID),
			slog.String("previous_provider_sub_id", existing.ProviderSubID),
		)
	case err != nil && !errors.Is(err, ErrSubscriptionNotFound):
		return err
	}

	now := s.now()
	sub := &Subscription{
		UserID:            userID,
		PlanID:            event.PlanID,
		ProviderSubID:     event.SubscriptionID,
		Status:            StatusActive,
		CancelAtPeriodEnd: event.CancelAtPeriodEnd,
		CurrentPeriodEnd:  event.CurrentPeriodEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if event.Status.Valid() && event.Status != StatusCanceled {
		sub.Status = event.Status
	}
	if existing != nil {
		sub.CreatedAt = existing.CreatedAt
	}

	if err := s.store.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	log.InfoContext(ctx, "subscription confirmed",
		logger.UserID(userID),
		logger.PlanID(sub.PlanID),
	)
	s.releaseCheckoutLock(ctx, userID)
	s.notify(ctx, OpConfirm, sub)
	return nil
}

func (s *service) applyUpdate(ctx context.Context, log *slog.Logger, event ProcessorEvent) error {
	sub, ok, err := s.eventSubscription(ctx, log, event)
	if err != nil || !ok {
		return err
	}
	if sub.IsCanceled() {
		log.InfoContext(ctx, "ignoring update for canceled subscription")
		return nil
	}

	next := sub.clone()
	if event.PlanID != "" {
		if _, err := s.plans.Get(ctx, event.PlanID); err != nil {
			return err
		}
		next.PlanID = event.PlanID
	}
	applyRemote(next, &RemoteSubscription{
		ID:               event.SubscriptionID,
		Status:           event.Status,
		CurrentPeriodEnd: event.CurrentPeriodEnd,
	})
	next.CancelAtPeriodEnd = event.CancelAtPeriodEnd && !next.IsCanceled()
	if next.IsCanceled() {
		now := s.now()
		next.CanceledAt = &now
	}
	next.UpdatedAt = s.now()

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	s.clearPending(ctx, next.UserID)
	s.notify(ctx, OpConfirm, next)
	return nil
}

func (s *service) applyTransition(ctx context.Context, log *slog.Logger, event ProcessorEvent, ev lifecycleEvent) error {
	sub, ok, err := s.eventSubscription(ctx, log, event)
	if err != nil || !ok {
		return err
	}

	next := sub.clone()
	if err := fire(next, ev); err != nil {
		// out-of-order delivery must not make the processor retry forever
		log.WarnContext(ctx, "ignoring processor event", logger.Error(err))
		return nil
	}
	if event.CurrentPeriodEnd != nil {
		t := *event.CurrentPeriodEnd
		next.CurrentPeriodEnd = &t
	}
	if next.IsCanceled() && next.CanceledAt == nil {
		now := s.now()
		next.CanceledAt = &now
	}
	if sameState(next, sub) && (next.CanceledAt == nil) == (sub.CanceledAt == nil) {
		return nil
	}
	next.UpdatedAt = s.now()

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	log.InfoContext(ctx, "subscription status changed",
		logger.UserID(next.UserID),
		slog.String("from", string(sub.Status)),
		slog.String("to", string(next.Status)),
	)
	s.notify(ctx, OpConfirm, next)
	return nil
}

// eventSubscription loads the row an event refers to. ok is false when the
// event should be ignored: no row yet, or it belongs to an older processor
// subscription.
func (s *service) eventSubscription(ctx context.Context, log *slog.Logger, event ProcessorEvent) (*Subscription, bool, error) {
	userID, err := eventUserID(event)
	if err != nil {
		return nil, false, err
	}
	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.InfoContext(ctx, "no subscription for processor event", logger.UserID(userID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if event.SubscriptionID != "" && sub.ProviderSubID != "" && sub.ProviderSubID != event.SubscriptionID {
		log.InfoContext(ctx, "ignoring event for superseded subscription", logger.UserID(userID))
		return nil, false, nil
	}
	return sub, true, nil
}

func eventUserID(event ProcessorEvent) (uuid.UUID, error) {
	if event.UserID == "" {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidEvent, ErrMissingUserID)
	}
	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id: %w", ErrInvalidEvent, err)
	}
	return id, nil
}
