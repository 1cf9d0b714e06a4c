package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// SignatureHeader is the header Paddle signs notifications with.
const SignatureHeader = "Paddle-Signature"

type notification struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	OccurredAt string           `json:"occurred_at"`
	Data       notificationData `json:"data"`
}

type notificationData struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	SubscriptionID string         `json:"subscription_id"`
	CustomData     map[string]any `json:"custom_data"`
	Items          []struct {
		PriceID string `json:"price_id"`
		Price   struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
	ScheduledChange *struct {
		Action      string `json:"action"`
		EffectiveAt string `json:"effective_at"`
	} `json:"scheduled_change"`
	CurrentBillingPeriod *struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
	} `json:"current_billing_period"`
}

// ParseWebhook verifies the Paddle-Signature and normalises the notification.
// Notifications the lifecycle does not care about come back with an empty Type.
func (p *Provider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.ProcessorEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return parseNotification(payload)
}

func parseNotification(payload []byte) (*subscription.ProcessorEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if n.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrInvalidPayload)
	}

	event := &subscription.ProcessorEvent{
		ID:            n.EventID,
		ProviderEvent: n.EventType,
		Status:        MapStatus(n.Data.Status),
		UserID:        customString(n.Data.CustomData, subscription.MetadataUserID),
		PlanID:        customString(n.Data.CustomData, subscription.MetadataPlanID),
	}
	if t := parseTime(n.OccurredAt); t != nil {
		event.OccurredAt = *t
	}
	if typ, ok := MapEventType(n.EventType); ok {
		event.Type = typ
	}

	switch {
	case strings.HasPrefix(n.EventType, "subscription."):
		event.SubscriptionID = n.Data.ID
		if n.Data.ScheduledChange != nil {
			event.CancelAtPeriodEnd = isCancelAction(n.Data.ScheduledChange.Action)
		}
		if n.Data.CurrentBillingPeriod != nil {
			event.CurrentPeriodEnd = parseTime(n.Data.CurrentBillingPeriod.EndsAt)
		}
		if len(n.Data.Items) > 0 {
			event.PriceID = n.Data.Items[0].Price.ID
		}
	case strings.HasPrefix(n.EventType, "transaction."):
		// transaction status is not a subscription status
		event.Status = ""
		event.SubscriptionID = n.Data.SubscriptionID
		if len(n.Data.Items) > 0 {
			event.PriceID = n.Data.Items[0].PriceID
		}
		if event.SubscriptionID == "" {
			// one-off transaction, nothing to mirror
			event.Type = ""
		}
	}

	return event, nil
}

func customString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}
