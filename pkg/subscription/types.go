package subscription

import (
	"time"

	"github.com/google/uuid"
)

const (
	// UnlimitedProfiles is the UserLimit value meaning "no cap on child profiles".
	UnlimitedProfiles int64 = 999
	// UnlimitedMemories is the MemoryLimit value meaning "no cap on monthly memories".
	UnlimitedMemories int64 = 99999
)

// Action is a user operation gated by the current entitlement.
type Action string

// Quota actions create countable resources.
const (
	ActionCreateProfile      Action = "create_profile"
	ActionCreateMemory       Action = "create_memory"
	ActionInviteFamilyMember Action = "invite_family_member"
)

// Feature actions are gated by a boolean plan flag.
const (
	ActionUseAI           Action = "use_ai"
	ActionExport          Action = "export"
	ActionOfflineMode     Action = "offline_mode"
	ActionPrioritySupport Action = "priority_support"
)

// IsQuota reports whether the action consumes a countable limit.
func (a Action) IsQuota() bool {
	switch a {
	case ActionCreateProfile, ActionCreateMemory, ActionInviteFamilyMember:
		return true
	}
	return false
}

// Status mirrors the payment processor's subscription status.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// IsLive reports whether the status grants full plan entitlements.
func (s Status) IsLive() bool {
	return s == StatusActive || s == StatusTrialing
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// BillingInterval selects which plan price a checkout uses.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// CheckoutOptions contains caller supplied checkout parameters.
type CheckoutOptions struct {
	SuccessURL string
	CancelURL  string
	Interval   BillingInterval // defaults to monthly
}

// CheckoutSession is the processor's hosted checkout.
type CheckoutSession struct {
	SessionID string
	URL       string
	ExpiresAt time.Time
}

// Payment is a single invoice from the processor's billing history.
type Payment struct {
	ID            string
	InvoiceNumber string
	Status        string
	Amount        Money
	BilledAt      time.Time
}

// User is the account a subscription belongs to.
// PlanID is the free-tier fast path used when no subscription row exists.
type User struct {
	ID     uuid.UUID
	Email  string
	PlanID string
}
