package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/logger"
)

// Cancel schedules cancellation at the end of the current billing period.
// Calling it on an already flagged subscription is a no-op.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, OpCancel)
}

// Reactivate removes a scheduled cancellation. A subscription that has
// already lapsed cannot be reactivated and needs a new checkout.
func (s *service) Reactivate(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, OpReactivate)
}

// setCancelAtPeriodEnd calls the processor first and writes locally second,
// so the local row can only lag behind the processor, never run ahead of it.
func (s *service) setCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, op Op) (*Subscription, error) {
	target, ev := true, evCancel
	if op == OpReactivate {
		target, ev = false, evReactivate
	}
	log := s.log.With(logger.UserID(userID), slog.String("op", string(op)))

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !canFire(sub, ev) {
		return nil, fire(sub.clone(), ev)
	}

	pending, err := s.pendingWrite(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil && pending.ProviderSubID != sub.ProviderSubID {
		// owed for a previous processor subscription
		s.clearPending(ctx, userID)
		pending = nil
	}
	if pending != nil && pending.CancelAtPeriodEnd == target {
		log.InfoContext(ctx, "completing pending local write")
		return s.completePending(ctx, sub, pending)
	}
	if pending == nil && sub.CancelAtPeriodEnd == target {
		return sub, nil
	}
	if sub.ProviderSubID == "" {
		return nil, fmt.Errorf("%w: subscription has no processor reference", ErrInvalidTransition)
	}

	remote, err := s.processor.SetCancelAtPeriodEnd(ctx, sub.ProviderSubID, target)
	if err != nil {
		perr := newProcessorError(string(op), err)
		log.ErrorContext(ctx, "processor rejected lifecycle change",
			slog.Bool("outcome_unknown", perr.OutcomeUnknown),
			logger.Error(err),
		)
		return nil, perr
	}

	next := sub.clone()
	if err := fire(next, ev); err != nil {
		return nil, err
	}
	applyRemote(next, remote)
	next.UpdatedAt = s.now()

	if err := s.store.Save(ctx, next); err != nil {
		w := PendingWrite{
			UserID:            userID,
			Op:                op,
			ProviderSubID:     next.ProviderSubID,
			Status:            next.Status,
			CancelAtPeriodEnd: next.CancelAtPeriodEnd,
			CurrentPeriodEnd:  next.CurrentPeriodEnd,
			RecordedAt:        s.now(),
		}
		s.recordPending(ctx, w)
		log.ErrorContext(ctx, "local write failed after processor change", logger.Error(err))
		return nil, &ReconciliationError{UserID: userID, Op: op, Target: target, Err: err}
	}

	if pending != nil {
		s.clearPending(ctx, userID)
	}
	log.InfoContext(ctx, "subscription updated", slog.Bool("cancel_at_period_end", next.CancelAtPeriodEnd))
	s.notify(ctx, op, next)
	return next, nil
}

// Reconcile finishes a local write owed after a successful remote change.
// It never calls the processor. Without a pending write it returns the
// current row unchanged.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.pendingWrite(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return sub, nil
	}
	return s.completePending(ctx, sub, pending)
}

func (s *service) completePending(ctx context.Context, sub *Subscription, w *PendingWrite) (*Subscription, error) {
	next := sub.clone()
	if w.Status.Valid() {
		next.Status = w.Status
	}
	next.CancelAtPeriodEnd = w.CancelAtPeriodEnd
	if w.CurrentPeriodEnd != nil {
		t := *w.CurrentPeriodEnd
		next.CurrentPeriodEnd = &t
	}
	next.UpdatedAt = s.now()

	if err := s.store.Save(ctx, next); err != nil {
		return nil, &ReconciliationError{UserID: w.UserID, Op: w.Op, Target: w.CancelAtPeriodEnd, Err: err}
	}
	s.clearPending(ctx, w.UserID)
	s.notify(ctx, w.Op, next)
	return next, nil
}

// pendingWrite prefers the process-local entry, which only exists when the
// journal refused to record it.
func (s *service) pendingWrite(ctx context.Context, userID uuid.UUID) (*PendingWrite, error) {
	if w, _ := s.fallback.Pending(ctx, userID); w != nil {
		return w, nil
	}
	w, err := s.journal.Pending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reconciliation journal: %w", err)
	}
	return w, nil
}

// recordPending keeps the entry in process memory when the journal is
// unavailable, so a retry in this process still skips the processor call.
func (s *service) recordPending(ctx context.Context, w PendingWrite) {
	err := s.journal.Record(ctx, w)
	if err == nil {
		return
	}
	s.log.ErrorContext(ctx, "failed to record pending local write, keeping it in process",
		logger.UserID(w.UserID),
		logger.Error(err),
	)
	_ = s.fallback.Record(ctx, w)
}

func (s *service) clearPending(ctx context.Context, userID uuid.UUID) {
	_ = s.fallback.Clear(ctx, userID)
	if err := s.journal.Clear(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "failed to clear reconciliation journal",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}

// SyncSubscription overwrites the local row with the processor's current
// state. Use it after a ProcessorError with an unknown outcome instead of
// retrying the original call.
func (s *service) SyncSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.ProviderSubID == "" {
		return sub, nil
	}

	remote, err := s.processor.GetSubscription(ctx, sub.ProviderSubID)
	if err != nil {
		return nil, newProcessorError("get_subscription", err)
	}

	next := sub.clone()
	applyRemote(next, remote)
	if remote != nil {
		next.CancelAtPeriodEnd = remote.CancelAtPeriodEnd && next.Status != StatusCanceled
	}
	if sameState(next, sub) {
		s.clearPending(ctx, userID)
		return sub, nil
	}
	next.UpdatedAt = s.now()
	if next.IsCanceled() && next.CanceledAt == nil {
		now := s.now()
		next.CanceledAt = &now
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save synced subscription: %w", err)
	}
	s.clearPending(ctx, userID)
	s.notify(ctx, OpSync, next)
	return next, nil
}

// applyRemote copies the processor's status and period end onto sub.
func applyRemote(sub *Subscription, remote *RemoteSubscription) {
	if remote == nil {
		return
	}
	if remote.Status.Valid() {
		sub.Status = remote.Status
	}
	if remote.CurrentPeriodEnd != nil {
		t := *remote.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &t
	}
	if sub.Status == StatusCanceled {
		sub.CancelAtPeriodEnd = false
	}
}

func sameState(a, b *Subscription) bool {
	if a.Status != b.Status || a.CancelAtPeriodEnd != b.CancelAtPeriodEnd {
		return false
	}
	switch {
	case a.CurrentPeriodEnd == nil && b.CurrentPeriodEnd == nil:
		return true
	case a.CurrentPeriodEnd == nil || b.CurrentPeriodEnd == nil:
		return false
	default:
		return a.CurrentPeriodEnd.Equal(*b.CurrentPeriodEnd)
	}
}
