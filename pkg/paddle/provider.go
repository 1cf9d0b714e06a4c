package paddle

import (
	"context"
	"fmt"
	"strings"
	"time"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// Provider implements subscription.Processor on top of Paddle Billing.
type Provider struct {
	client   *paddlesdk.SDK
	verifier *paddlesdk.WebhookVerifier
	config   Config
}

var _ subscription.Processor = (*Provider)(nil)

// New creates a Paddle processor for the configured environment.
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if config.CheckoutTTL <= 0 {
		config.CheckoutTTL = 24 * time.Hour
	}

	var opts []paddlesdk.Option
	if config.BaseURL != "" {
		opts = append(opts, paddlesdk.WithBaseURL(config.BaseURL))
	}

	var client *paddlesdk.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddlesdk.NewSandbox(config.APIKey, opts...)
	case "production", "":
		client, err = paddlesdk.New(config.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Provider{
		client:   client,
		verifier: paddlesdk.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// CreateCheckout creates a transaction for the price; Paddle returns the
// hosted checkout URL on it. Metadata travels as custom_data and comes back
// on every subscription webhook.
//
// Paddle transactions have no cancel redirect: an abandoned checkout simply
// stays on the hosted page, so req.CancelURL is not sent. The email is not a
// Paddle customer reference either; the customer enters it on the checkout
// and it is kept in custom_data for support lookups only.
func (p *Provider) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, ErrMissingPriceID
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	customData := paddlesdk.CustomData{}
	for k, v := range req.Metadata {
		customData[k] = v
	}
	if req.Email != "" {
		customData["email"] = req.Email
	}

	txReq := &paddlesdk.CreateTransactionRequest{
		Items:      []paddlesdk.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddlesdk.TransactionCheckout{
			URL: paddlesdk.PtrTo(req.SuccessURL),
		}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &subscription.CheckoutSession{
		SessionID: tx.ID,
		URL:       *tx.Checkout.URL,
		ExpiresAt: time.Now().UTC().Add(p.config.CheckoutTTL),
	}, nil
}

// SetCancelAtPeriodEnd schedules a cancellation for the next billing period,
// or removes the scheduled change when cancel is false.
func (p *Provider) SetCancelAtPeriodEnd(ctx context.Context, providerSubID string, cancel bool) (*subscription.RemoteSubscription, error) {
	var (
		sub *paddlesdk.Subscription
		err error
	)
	if cancel {
		sub, err = p.client.SubscriptionsClient.CancelSubscription(ctx, &paddlesdk.CancelSubscriptionRequest{
			SubscriptionID: providerSubID,
			EffectiveFrom:  paddlesdk.PtrTo(paddlesdk.EffectiveFromNextBillingPeriod),
		})
	} else {
		sub, err = p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddlesdk.UpdateSubscriptionRequest{
			SubscriptionID:  providerSubID,
			ScheduledChange: paddlesdk.NewNullPatchField[*paddlesdk.SubscriptionScheduledChange](),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update paddle subscription %s: %w", providerSubID, err)
	}
	return toRemote(sub), nil
}

func (p *Provider) GetSubscription(ctx context.Context, providerSubID string) (*subscription.RemoteSubscription, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddlesdk.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get paddle subscription %s: %w", providerSubID, err)
	}
	return toRemote(sub), nil
}

// ListInvoices returns billed transactions of the subscription, newest first.
func (p *Provider) ListInvoices(ctx context.Context, providerSubID string, limit int) ([]subscription.Payment, error) {
	res, err := p.client.TransactionsClient.ListTransactions(ctx, &paddlesdk.ListTransactionsRequest{
		SubscriptionID: []string{providerSubID},
		OrderBy:        paddlesdk.PtrTo("billed_at[DESC]"),
		PerPage:        paddlesdk.PtrTo(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paddle transactions: %w", err)
	}

	payments := make([]subscription.Payment, 0, limit)
	err = res.Iter(ctx, func(tx *paddlesdk.Transaction) (bool, error) {
		if payment, ok := toPayment(tx); ok {
			payments = append(payments, payment)
		}
		return len(payments) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read paddle transactions: %w", err)
	}
	return payments, nil
}

func toRemote(sub *paddlesdk.Subscription) *subscription.RemoteSubscription {
	if sub == nil {
		return nil
	}
	remote := &subscription.RemoteSubscription{
		ID:     sub.ID,
		Status: MapStatus(string(sub.Status)),
	}
	if sub.ScheduledChange != nil {
		remote.CancelAtPeriodEnd = isCancelAction(string(sub.ScheduledChange.Action))
	}
	if sub.CurrentBillingPeriod != nil {
		remote.CurrentPeriodEnd = parseTime(sub.CurrentBillingPeriod.EndsAt)
	}
	return remote
}

// toPayment skips transactions that were never billed (drafts, open checkouts).
func toPayment(tx *paddlesdk.Transaction) (subscription.Payment, bool) {
	if tx == nil || tx.BilledAt == nil {
		return subscription.Payment{}, false
	}
	billedAt := parseTime(*tx.BilledAt)
	if billedAt == nil {
		return subscription.Payment{}, false
	}
	payment := subscription.Payment{
		ID:       tx.ID,
		Status:   string(tx.Status),
		Amount:   parseMoney(tx.Details.Totals.GrandTotal, string(tx.CurrencyCode)),
		BilledAt: *billedAt,
	}
	if tx.InvoiceNumber != nil {
		payment.InvoiceNumber = *tx.InvoiceNumber
	}
	return payment, true
}
