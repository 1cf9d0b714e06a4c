package subscription

import (
	"context"
	"time"
)

// Processor is the external payment processor. It is the source of truth for
// billing-period semantics; the local store only mirrors it.
type Processor interface {
	// CreateCheckout creates a hosted checkout session.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// SetCancelAtPeriodEnd schedules (true) or removes (false) the cancellation
	// of a remote subscription at the end of its current billing period.
	SetCancelAtPeriodEnd(ctx context.Context, providerSubID string, cancel bool) (*RemoteSubscription, error)

	// GetSubscription reads the remote subscription.
	GetSubscription(ctx context.Context, providerSubID string) (*RemoteSubscription, error)

	// ListInvoices returns at most limit invoices, most recent first.
	ListInvoices(ctx context.Context, providerSubID string, limit int) ([]Payment, error)

	// ParseWebhook validates the signature and normalises a processor event.
	// Rejected signatures and malformed payloads wrap ErrInvalidEvent.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*ProcessorEvent, error)
}

// Metadata keys embedded in checkout sessions so the confirmation step can
// locate the local rows to create.
const (
	MetadataUserID = "user_id"
	MetadataPlanID = "plan_id"
)

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID    string
	Email      string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// RemoteSubscription is the processor's view of a subscription.
type RemoteSubscription struct {
	ID                string
	Status            Status
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
}

// EventType is the normalised processor event type.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentSucceeded     EventType = "payment_succeeded"
	EventPaymentFailed        EventType = "payment_failed"
)

// ProcessorEvent is a normalised confirmation event from the processor.
type ProcessorEvent struct {
	ID                string
	Type              EventType
	ProviderEvent     string
	SubscriptionID    string
	UserID            string // from checkout metadata
	PlanID            string // from checkout metadata
	PriceID           string
	Status            Status
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	OccurredAt        time.Time
}
