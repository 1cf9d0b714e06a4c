package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithUsageCounter registers the live counter for a quota action.
// Panics if a counter for the same action is already registered or the action
// is not a quota action, to catch wiring mistakes at startup.
func WithUsageCounter(action Action, fn UsageCounter) ServiceOption {
	return func(s *service) {
		if fn == nil {
			return
		}
		if !action.IsQuota() {
			panic("subscription: " + string(action) + " is not a quota action")
		}
		if _, exists := s.counters[action]; exists {
			panic("subscription: counter for action " + string(action) + " already registered")
		}
		s.counters[action] = fn
	}
}

// WithFreePlan sets the lowest-tier plan used when a subscription is past due
// or canceled. Defaults to the cheapest active plan.
func WithFreePlan(planID string) ServiceOption {
	return func(s *service) {
		s.freePlanID = planID
	}
}

// WithJournal replaces the default in-memory reconciliation journal.
func WithJournal(j ReconciliationJournal) ServiceOption {
	return func(s *service) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithCheckoutLocker enables per-user checkout serialisation.
func WithCheckoutLocker(l CheckoutLocker) ServiceOption {
	return func(s *service) {
		s.locker = l
	}
}

// WithNotifier registers a receiver for committed subscription changes.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		s.notifier = n
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPaymentHistoryLimit caps how many invoices ListPayments returns (at most 10).
func WithPaymentHistoryLimit(n int) ServiceOption {
	return func(s *service) {
		if n > 0 && n <= maxPaymentHistory {
			s.historyLimit = n
		}
	}
}
