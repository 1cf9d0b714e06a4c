package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/logger"
)

// Service defines the public interface for plan-gated entitlements and the
// subscription lifecycle. Every operation takes the acting user explicitly.
type Service interface {
	// Plan registry
	ListActivePlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, planID string) (*Plan, error)

	// Entitlements
	Check(ctx context.Context, userID uuid.UUID, action Action) (Decision, error)
	Entitlements(ctx context.Context, userID uuid.UUID) (*Entitlements, error)

	// Subscription lifecycle
	GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	StartCheckout(ctx context.Context, userID uuid.UUID, planID string, opts CheckoutOptions) (*CheckoutSession, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	Reactivate(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	SyncSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Processor read-through and confirmation
	ListPayments(ctx context.Context, userID uuid.UUID) ([]Payment, error)
	ApplyEvent(ctx context.Context, event ProcessorEvent) error
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type service struct {
	plans     PlanRegistry
	store     SubscriptionStore
	users     UserStore
	processor Processor

	counters     map[Action]UsageCounter
	freePlanID   string
	journal      ReconciliationJournal
	fallback     ReconciliationJournal
	locker       CheckoutLocker
	notifier     Notifier
	historyLimit int
	log          *slog.Logger
	now          func() time.Time
}

// NewService creates a Service with the given dependencies.
// Panics if a required dependency is nil to fail fast during initialization.
func NewService(plans PlanRegistry, store SubscriptionStore, users UserStore, processor Processor, opts ...ServiceOption) Service {
	if plans == nil {
		panic("subscription: PlanRegistry is required")
	}
	if store == nil {
		panic("subscription: SubscriptionStore is required")
	}
	if users == nil {
		panic("subscription: UserStore is required")
	}
	if processor == nil {
		panic("subscription: Processor is required")
	}

	s := &service{
		plans:        plans,
		store:        store,
		users:        users,
		processor:    processor,
		counters:     make(map[Action]UsageCounter),
		journal:      NewMemoryJournal(),
		fallback:     NewMemoryJournal(),
		historyLimit: maxPaymentHistory,
		log:          logger.Discard(),
		now:          func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ListActivePlans returns purchasable plans ordered by ascending monthly price.
func (s *service) ListActivePlans(ctx context.Context) ([]Plan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	active := plans[:0:0]
	for _, p := range plans {
		if p.IsActive {
			active = append(active, p)
		}
	}
	SortPlans(active)
	return active, nil
}

func (s *service) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	return s.plans.Get(ctx, planID)
}

func (s *service) GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.Get(ctx, userID)
}

// Check resolves the user's plan and live usage and evaluates the action.
// Denials are returned as a Decision; errors mean the decision could not be made.
func (s *service) Check(ctx context.Context, userID uuid.UUID, action Action) (Decision, error) {
	r, err := s.resolve(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	var usage int64
	if action.IsQuota() && r.plan != nil {
		counter, ok := s.counters[action]
		if !ok {
			return Decision{}, ErrNoCounterRegistered
		}
		usage, err = counter(ctx, userID)
		if err != nil {
			return Decision{}, errors.Join(ErrFailedToCountResourceUsage, err)
		}
	}

	d := Evaluate(r.input(action, usage))
	if !d.Allowed {
		s.log.DebugContext(ctx, "action denied",
			logger.UserID(userID),
			logger.Action(string(action)),
			logger.Reason(string(d.Reason)),
		)
	}
	return d, nil
}

// Quota is the usage of one countable limit.
type Quota struct {
	Limit     int64
	Usage     int64
	Remaining int64 // -1 when unlimited
	Unlimited bool
}

// Entitlements summarises what a user may currently do.
type Entitlements struct {
	Plan         *Plan // plan whose quotas apply
	Subscription *Subscription
	Degraded     bool // quotas fell back to the free plan
	Quotas       map[Action]Quota
	Features     map[Action]bool
}

var (
	quotaActions   = []Action{ActionCreateProfile, ActionCreateMemory, ActionInviteFamilyMember}
	featureActions = []Action{ActionUseAI, ActionExport, ActionOfflineMode, ActionPrioritySupport}
)

// Entitlements returns the user's effective quotas and features. Missing or
// failing counters report zero usage so dashboards still render.
func (s *service) Entitlements(ctx context.Context, userID uuid.UUID) (*Entitlements, error) {
	r, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if r.plan == nil {
		return nil, ErrPlanNotFound
	}

	e := &Entitlements{
		Plan:         r.plan,
		Subscription: r.sub,
		Quotas:       make(map[Action]Quota, len(quotaActions)),
		Features:     make(map[Action]bool, len(featureActions)),
	}
	if r.sub != nil && !r.sub.IsLive() && r.free != nil {
		e.Plan = r.free
		e.Degraded = true
	}

	for _, a := range quotaActions {
		var usage int64
		if counter, ok := s.counters[a]; ok {
			if n, err := counter(ctx, userID); err == nil {
				usage = n
			} else {
				s.log.WarnContext(ctx, "usage counter failed",
					logger.Action(string(a)),
					logger.Error(err),
				)
			}
		}
		d := Evaluate(r.input(a, usage))
		e.Quotas[a] = Quota{Limit: d.Limit, Usage: usage, Remaining: d.Remaining, Unlimited: d.Unlimited}
	}
	for _, a := range featureActions {
		e.Features[a] = Evaluate(r.input(a, 0)).Allowed
	}
	return e, nil
}

type resolution struct {
	user *User
	sub  *Subscription
	plan *Plan
	free *Plan
}

func (r *resolution) input(action Action, usage int64) EvaluationInput {
	in := EvaluationInput{
		Plan:     r.plan,
		FreePlan: r.free,
		Usage:    usage,
		Action:   action,
	}
	if r.sub != nil {
		in.Status = r.sub.Status
		in.CancelAtPeriodEnd = r.sub.CancelAtPeriodEnd
	}
	return in
}

// resolve loads everything the evaluator needs. The subscription's plan wins
// over the user's default plan.
func (s *service) resolve(ctx context.Context, userID uuid.UUID) (*resolution, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := &resolution{user: user}

	sub, err := s.store.Get(ctx, userID)
	switch {
	case err == nil:
		r.sub = sub
	case errors.Is(err, ErrSubscriptionNotFound):
	default:
		return nil, err
	}

	planID := user.PlanID
	if r.sub != nil && r.sub.PlanID != "" {
		planID = r.sub.PlanID
	}
	if planID != "" {
		plan, err := s.plans.Get(ctx, planID)
		switch {
		case err == nil:
			r.plan = plan
		case errors.Is(err, ErrPlanNotFound):
			s.log.WarnContext(ctx, "user references unknown plan",
				logger.UserID(userID),
				logger.PlanID(planID),
			)
		default:
			return nil, err
		}
	}

	if r.free, err = s.freePlan(ctx); err != nil {
		return nil, err
	}
	// A lapsed subscription on a retired plan still gets the free tier.
	if r.plan == nil && r.sub != nil && !r.sub.Status.IsLive() {
		r.plan = r.free
	}
	return r, nil
}

// freePlan returns the configured lowest tier, or the cheapest active plan.
func (s *service) freePlan(ctx context.Context) (*Plan, error) {
	if s.freePlanID != "" {
		return s.plans.Get(ctx, s.freePlanID)
	}
	plans, err := s.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func (s *service) notify(ctx context.Context, op Op, sub *Subscription) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SubscriptionChanged(ctx, Change{Op: op, Subscription: sub.clone()}); err != nil {
		s.log.WarnContext(ctx, "subscription change notification failed",
			logger.UserID(sub.UserID),
			slog.String("op", string(op)),
			logger.Error(err),
		)
	}
}
