package paddle

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// MapStatus maps a Paddle subscription status to the local status.
// paused has no local equivalent and degrades like past_due. Unknown values
// map to an empty status so callers keep their current one.
func MapStatus(status string) subscription.Status {
	switch strings.ToLower(status) {
	case "active":
		return subscription.StatusActive
	case "trialing":
		return subscription.StatusTrialing
	case "past_due", "paused":
		return subscription.StatusPastDue
	case "canceled", "cancelled":
		return subscription.StatusCanceled
	default:
		return ""
	}
}

// MapEventType maps a Paddle notification type to the normalised event.
// Returns false for notifications the subscription lifecycle ignores.
func MapEventType(eventType string) (subscription.EventType, bool) {
	switch eventType {
	case "subscription.created", "subscription.activated":
		return subscription.EventSubscriptionCreated, true
	case "subscription.updated", "subscription.resumed", "subscription.paused", "subscription.past_due", "subscription.trialing":
		return subscription.EventSubscriptionUpdated, true
	case "subscription.canceled":
		return subscription.EventSubscriptionCanceled, true
	case "transaction.completed", "transaction.paid":
		return subscription.EventPaymentSucceeded, true
	case "transaction.payment_failed", "transaction.past_due":
		return subscription.EventPaymentFailed, true
	default:
		return "", false
	}
}

func isCancelAction(action string) bool {
	return action == "cancel"
}

// parseTime parses Paddle's RFC 3339 timestamps; empty or invalid values yield nil.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// parseMoney converts Paddle's lowest-denomination amount strings.
func parseMoney(amount, currency string) subscription.Money {
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		n = 0
	}
	return subscription.Money{Amount: n, Currency: strings.ToUpper(currency)}
}
