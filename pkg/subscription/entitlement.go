package subscription

import "fmt"

// DenyReason explains why an action was denied.
type DenyReason string

const (
	ReasonNoPlan             DenyReason = "no_plan"
	ReasonProfileLimit       DenyReason = "profile_limit_reached"
	ReasonMemoryLimit        DenyReason = "memory_limit_reached"
	ReasonFamilyLimit        DenyReason = "family_limit_reached"
	ReasonFeatureUnavailable DenyReason = "feature_unavailable"
	ReasonUnknownAction      DenyReason = "unknown_action"
)

// EvaluationInput is everything the evaluator needs to decide.
// An empty Status means the user has no subscription row and Plan came from
// the user's default plan.
type EvaluationInput struct {
	Plan              *Plan
	FreePlan          *Plan
	Status            Status
	CancelAtPeriodEnd bool
	Usage             int64
	Action            Action
}

// Decision is the evaluator's verdict. For quota actions Limit, Usage and
// Remaining describe the effective quota; Remaining is -1 when Unlimited.
type Decision struct {
	Allowed   bool
	Reason    DenyReason
	Action    Action
	PlanID    string
	Limit     int64
	Usage     int64
	Remaining int64
	Unlimited bool
}

// Message returns user-facing text naming what blocked the action.
func (d Decision) Message() string {
	if d.Allowed {
		return ""
	}
	switch d.Reason {
	case ReasonNoPlan:
		return "no active plan, choose a plan to continue"
	case ReasonProfileLimit:
		return fmt.Sprintf("profile limit reached for your plan (%d of %d)", d.Usage, d.Limit)
	case ReasonMemoryLimit:
		return fmt.Sprintf("monthly memory limit reached for your plan (%d of %d)", d.Usage, d.Limit)
	case ReasonFamilyLimit:
		return fmt.Sprintf("family sharing limit reached for your plan (%d of %d)", d.Usage, d.Limit)
	case ReasonFeatureUnavailable:
		return fmt.Sprintf("%s is not included in your plan", featureName(d.Action))
	default:
		return "action is not permitted"
	}
}

// Evaluate decides whether the action is permitted. It has no side effects
// and never fails.
func Evaluate(in EvaluationInput) Decision {
	d := Decision{Action: in.Action}

	if in.Plan == nil {
		d.Reason = ReasonNoPlan
		return d
	}
	d.PlanID = in.Plan.ID

	if !in.Action.IsQuota() {
		switch in.Action {
		case ActionUseAI, ActionExport, ActionOfflineMode, ActionPrioritySupport:
			d.Allowed = in.Plan.HasFeature(in.Action)
			if !d.Allowed {
				d.Reason = ReasonFeatureUnavailable
			}
		default:
			d.Reason = ReasonUnknownAction
		}
		return d
	}

	// Pending cancellation keeps full quotas; degraded statuses fall back
	// to the free tier instead of zero.
	effective := in.Plan
	if in.Status != "" && !in.Status.IsLive() {
		if in.FreePlan == nil {
			d.Reason = ReasonNoPlan
			return d
		}
		effective = in.FreePlan
	}
	d.PlanID = effective.ID

	limit, unlimited, _ := effective.limitFor(in.Action)
	d.Usage = in.Usage
	d.Limit = limit
	d.Unlimited = unlimited

	if unlimited {
		d.Allowed = true
		d.Remaining = -1
		return d
	}

	if in.Usage >= limit {
		d.Reason = quotaReason(in.Action)
		return d
	}

	d.Allowed = true
	d.Remaining = limit - in.Usage
	return d
}

func quotaReason(a Action) DenyReason {
	switch a {
	case ActionCreateProfile:
		return ReasonProfileLimit
	case ActionCreateMemory:
		return ReasonMemoryLimit
	default:
		return ReasonFamilyLimit
	}
}

func featureName(a Action) string {
	switch a {
	case ActionUseAI:
		return "AI assistance"
	case ActionExport:
		return "export"
	case ActionOfflineMode:
		return "offline mode"
	case ActionPrioritySupport:
		return "priority support"
	}
	return string(a)
}
