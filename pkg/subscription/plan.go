package subscription

import (
	"strconv"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Plan describes a billing tier and the entitlements it grants.
// PriceID (and YearlyPriceID when a yearly price exists) are the processor's
// price identifiers used to start a checkout.
type Plan struct {
	ID            string
	Name          string
	Description   string
	MonthlyPrice  Money
	YearlyPrice   *Money // nil means no yearly option
	PriceID       string
	YearlyPriceID string

	UserLimit     int64 // UnlimitedProfiles means no cap
	MemoryLimit   int64 // UnlimitedMemories means no cap
	FamilySharing int64

	ExportFeatures  bool
	PrioritySupport bool
	AIFeatures      bool
	OfflineMode     bool

	IsActive bool
}

// ProfilesUnlimited reports whether the plan places no cap on child profiles.
func (p Plan) ProfilesUnlimited() bool {
	return p.UserLimit == UnlimitedProfiles
}

// MemoriesUnlimited reports whether the plan places no cap on monthly memories.
func (p Plan) MemoriesUnlimited() bool {
	return p.MemoryLimit == UnlimitedMemories
}

// HasYearly reports whether the plan can be bought with yearly billing.
func (p Plan) HasYearly() bool {
	return p.YearlyPrice != nil && p.YearlyPriceID != ""
}

// PriceIDFor returns the processor price id for the interval.
func (p Plan) PriceIDFor(interval BillingInterval) (string, error) {
	switch interval {
	case "", IntervalMonthly:
		if p.PriceID == "" {
			return "", ErrMissingPriceID
		}
		return p.PriceID, nil
	case IntervalYearly:
		if !p.HasYearly() {
			return "", ErrIntervalNotAvailable
		}
		return p.YearlyPriceID, nil
	default:
		return "", ErrIntervalNotAvailable
	}
}

// HasFeature returns the plan flag gating a feature action.
func (p Plan) HasFeature(action Action) bool {
	switch action {
	case ActionUseAI:
		return p.AIFeatures
	case ActionExport:
		return p.ExportFeatures
	case ActionOfflineMode:
		return p.OfflineMode
	case ActionPrioritySupport:
		return p.PrioritySupport
	}
	return false
}

// limitFor returns the quota for the action and whether it is unbounded.
func (p Plan) limitFor(action Action) (limit int64, unlimited bool, ok bool) {
	switch action {
	case ActionCreateProfile:
		return p.UserLimit, p.ProfilesUnlimited(), true
	case ActionCreateMemory:
		return p.MemoryLimit, p.MemoriesUnlimited(), true
	case ActionInviteFamilyMember:
		return p.FamilySharing, false, true
	}
	return 0, false, false
}

// FormatLimit renders a limit for display, honouring the unlimited sentinel.
// Pass 0 as sentinel for limits that have no unlimited encoding.
func FormatLimit(limit, sentinel int64) string {
	if sentinel != 0 && limit == sentinel {
		return "unlimited"
	}
	return strconv.FormatInt(limit, 10)
}

// Money is an amount in the currency's minor unit ($9.99 is Amount: 999, Currency: "USD").
type Money struct {
	Amount   int64
	Currency string
}

// Format renders the amount with its currency symbol for the given language tag.
// Unknown currencies fall back to "<amount> <code>".
func (m Money) Format(lang language.Tag) string {
	unit, err := currency.ParseISO(m.Currency)
	p := message.NewPrinter(lang)
	if err != nil {
		return p.Sprintf("%.2f %s", float64(m.Amount)/100, m.Currency)
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(m.Amount)
	for range scale {
		value /= 10
	}
	return p.Sprint(currency.Symbol(unit.Amount(value)))
}
