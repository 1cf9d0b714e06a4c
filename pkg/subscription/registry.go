package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

type memoryRegistry struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewMemoryRegistry returns a PlanRegistry holding copies of the given plans.
// Panics if no plans are provided so a service never starts without a catalogue.
func NewMemoryRegistry(plans ...Plan) PlanRegistry {
	if len(plans) < 1 {
		panic("subscription: at least one plan is required")
	}
	m := make(map[string]Plan, len(plans))
	for _, p := range plans {
		m[p.ID] = copyPlan(p)
	}
	return &memoryRegistry{plans: m}
}

func (r *memoryRegistry) ListActive(ctx context.Context) ([]Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		if p.IsActive {
			out = append(out, copyPlan(p))
		}
	}
	SortPlans(out)
	return out, nil
}

func (r *memoryRegistry) Get(ctx context.Context, planID string) (*Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	c := copyPlan(p)
	return &c, nil
}

// SortPlans orders plans by ascending monthly price, then by ID.
func SortPlans(plans []Plan) {
	slices.SortStableFunc(plans, func(a, b Plan) int {
		if c := cmp.Compare(a.MonthlyPrice.Amount, b.MonthlyPrice.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ValidatePlan catches catalogue mistakes before they reach the evaluator.
func ValidatePlan(p Plan) error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("plan ID is empty"))
	}
	if p.MonthlyPrice.Amount < 0 {
		errs = append(errs, fmt.Errorf("plan %s has negative monthly price", p.ID))
	}
	if p.YearlyPrice != nil && p.YearlyPrice.Amount < 0 {
		errs = append(errs, fmt.Errorf("plan %s has negative yearly price", p.ID))
	}
	if p.UserLimit < 0 || p.MemoryLimit < 0 || p.FamilySharing < 0 {
		errs = append(errs, fmt.Errorf("plan %s has negative limits", p.ID))
	}
	if p.IsActive && p.MonthlyPrice.Amount > 0 && p.PriceID == "" {
		errs = append(errs, fmt.Errorf("paid plan %s has no price ID", p.ID))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPlan}, errs...)...)
	}
	return nil
}

func copyPlan(p Plan) Plan {
	if p.YearlyPrice != nil {
		y := *p.YearlyPrice
		p.YearlyPrice = &y
	}
	return p
}
