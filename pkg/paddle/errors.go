package paddle

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

var (
	ErrMissingAPIKey        = errors.New("paddle API key is required")
	ErrMissingWebhookSecret = errors.New("paddle webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid paddle environment")
	ErrMissingPriceID       = errors.New("price ID is required")
	ErrNoCheckoutURL        = errors.New("no checkout URL returned from paddle")

	// Rejected webhooks are kinds of subscription.ErrInvalidEvent.
	ErrInvalidSignature = fmt.Errorf("%w: webhook signature verification failed", subscription.ErrInvalidEvent)
	ErrInvalidPayload   = fmt.Errorf("%w: invalid webhook payload", subscription.ErrInvalidEvent)
)
