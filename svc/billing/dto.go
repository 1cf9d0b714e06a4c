package billing

import (
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

type priceResponse struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

func newPrice(m subscription.Money, lang language.Tag) priceResponse {
	return priceResponse{Amount: m.Amount, Currency: m.Currency, Formatted: m.Format(lang)}
}

type planResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Monthly       priceResponse  `json:"monthly"`
	Yearly        *priceResponse `json:"yearly,omitempty"`
	Profiles      string         `json:"profiles"`
	Memories      string         `json:"memories_per_month"`
	FamilyMembers string         `json:"family_members"`
	Features      []string       `json:"features"`
}

func newPlan(p subscription.Plan, lang language.Tag) planResponse {
	resp := planResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Monthly:       newPrice(p.MonthlyPrice, lang),
		Profiles:      subscription.FormatLimit(p.UserLimit, subscription.UnlimitedProfiles),
		Memories:      subscription.FormatLimit(p.MemoryLimit, subscription.UnlimitedMemories),
		FamilyMembers: subscription.FormatLimit(p.FamilySharing, 0),
		Features:      []string{},
	}
	if p.HasYearly() {
		y := newPrice(*p.YearlyPrice, lang)
		resp.Yearly = &y
	}
	for _, a := range []subscription.Action{
		subscription.ActionUseAI,
		subscription.ActionExport,
		subscription.ActionOfflineMode,
		subscription.ActionPrioritySupport,
	} {
		if p.HasFeature(a) {
			resp.Features = append(resp.Features, string(a))
		}
	}
	return resp
}

type subscriptionResponse struct {
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	InGracePeriod      bool       `json:"in_grace_period"`
	DaysUntilPeriodEnd int        `json:"days_until_period_end"`
	CreatedAt          time.Time  `json:"created_at"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
}

func newSubscription(s *subscription.Subscription, now time.Time) subscriptionResponse {
	return subscriptionResponse{
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		InGracePeriod:      s.InGracePeriodAt(now),
		DaysUntilPeriodEnd: s.DaysUntilPeriodEndAt(now),
		CreatedAt:          s.CreatedAt,
		CanceledAt:         s.CanceledAt,
	}
}

type checkoutRequest struct {
	PlanID     string `json:"plan_id" validate:"required,max=64"`
	Interval   string `json:"interval" validate:"omitempty,oneof=monthly yearly"`
	SuccessURL string `json:"success_url" validate:"omitempty,url"`
	CancelURL  string `json:"cancel_url" validate:"omitempty,url"`
}

type checkoutResponse struct {
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type checkRequest struct {
	Action string `json:"action" validate:"required,max=64"`
}

type decisionResponse struct {
	Action    string `json:"action"`
	Allowed   bool   `json:"allowed"`
	PlanID    string `json:"plan_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
	Limit     int64  `json:"limit,omitempty"`
	Usage     int64  `json:"usage,omitempty"`
	Remaining int64  `json:"remaining,omitempty"`
	Unlimited bool   `json:"unlimited,omitempty"`
}

func newDecision(d subscription.Decision) decisionResponse {
	resp := decisionResponse{
		Action:    string(d.Action),
		Allowed:   d.Allowed,
		PlanID:    d.PlanID,
		Reason:    string(d.Reason),
		Limit:     d.Limit,
		Usage:     d.Usage,
		Remaining: d.Remaining,
		Unlimited: d.Unlimited,
	}
	if !d.Allowed {
		resp.Message = d.Message()
	}
	return resp
}

type quotaResponse struct {
	Limit     string `json:"limit"`
	Usage     int64  `json:"usage"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

type entitlementsResponse struct {
	Plan         planResponse             `json:"plan"`
	Subscription *subscriptionResponse    `json:"subscription,omitempty"`
	Degraded     bool                     `json:"degraded"`
	Quotas       map[string]quotaResponse `json:"quotas"`
	Features     map[string]bool          `json:"features"`
}

func newEntitlements(e *subscription.Entitlements, lang language.Tag, now time.Time) entitlementsResponse {
	resp := entitlementsResponse{
		Plan:     newPlan(*e.Plan, lang),
		Degraded: e.Degraded,
		Quotas:   make(map[string]quotaResponse, len(e.Quotas)),
		Features: make(map[string]bool, len(e.Features)),
	}
	if e.Subscription != nil {
		s := newSubscription(e.Subscription, now)
		resp.Subscription = &s
	}
	for a, q := range e.Quotas {
		limit := subscription.FormatLimit(q.Limit, 0)
		if q.Unlimited {
			limit = "unlimited"
		}
		resp.Quotas[string(a)] = quotaResponse{Limit: limit, Usage: q.Usage, Remaining: q.Remaining, Unlimited: q.Unlimited}
	}
	for a, ok := range e.Features {
		resp.Features[string(a)] = ok
	}
	return resp
}

type paymentResponse struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	Status        string        `json:"status"`
	Amount        priceResponse `json:"amount"`
	BilledAt      time.Time     `json:"billed_at"`
}

func newPayments(payments []subscription.Payment, lang language.Tag) []paymentResponse {
	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, paymentResponse{
			ID:            p.ID,
			InvoiceNumber: p.InvoiceNumber,
			Status:        p.Status,
			Amount:        newPrice(p.Amount, lang),
			BilledAt:      p.BilledAt,
		})
	}
	return resp
}
