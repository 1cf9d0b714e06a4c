package billing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// catalogueFile is the YAML layout of the plan catalogue:
//
//	plans:
//	  - id: premium
//	    name: Premium
//	    currency: USD
//	    monthly: 999
//	    yearly: 9999
//	    price_id: pri_premium_monthly
//	    yearly_price_id: pri_premium_yearly
//	    limits: {profiles: unlimited, memories: unlimited, family_members: 6}
//	    features: [ai, export, offline, priority_support]
type catalogueFile struct {
	Plans []cataloguePlan `yaml:"plans"`
}

type cataloguePlan struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Currency      string   `yaml:"currency"`
	Monthly       int64    `yaml:"monthly"`
	Yearly        *int64   `yaml:"yearly"`
	PriceID       string   `yaml:"price_id"`
	YearlyPriceID string   `yaml:"yearly_price_id"`
	Limits        limits   `yaml:"limits"`
	Features      []string `yaml:"features"`
	Inactive      bool     `yaml:"inactive"`
}

type limits struct {
	Profiles      limit `yaml:"profiles"`
	Memories      limit `yaml:"memories"`
	FamilyMembers limit `yaml:"family_members"`
}

// limit is a non-negative count or the word "unlimited".
type limit struct {
	n         int64
	unlimited bool
}

func (l *limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w at line %d: expected a number or \"unlimited\"", ErrInvalidLimit, node.Line)
	}
	if strings.EqualFold(node.Value, "unlimited") {
		l.unlimited = true
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil || n < 0 {
		return fmt.Errorf("%w at line %d: %q", ErrInvalidLimit, node.Line, node.Value)
	}
	l.n = n
	return nil
}

func (l limit) value(sentinel int64) (int64, error) {
	if !l.unlimited {
		return l.n, nil
	}
	if sentinel == 0 {
		return 0, fmt.Errorf("%w: this limit cannot be unlimited", ErrInvalidLimit)
	}
	return sentinel, nil
}

// LoadPlansFile reads and validates the plan catalogue at path.
func LoadPlansFile(path string) ([]subscription.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalogue, err)
	}
	defer f.Close()
	return LoadPlans(f)
}

// LoadPlans decodes a YAML catalogue. Every plan is validated and plan IDs
// must be unique.
func LoadPlans(r io.Reader) ([]subscription.Plan, error) {
	var file catalogueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalogue, err)
	}
	if len(file.Plans) == 0 {
		return nil, ErrEmptyCatalogue
	}

	plans := make([]subscription.Plan, 0, len(file.Plans))
	seen := make(map[string]struct{}, len(file.Plans))
	for _, cp := range file.Plans {
		if _, dup := seen[cp.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlan, cp.ID)
		}
		seen[cp.ID] = struct{}{}

		p, err := cp.toPlan()
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalogue, err)
		}
		if err := subscription.ValidatePlan(p); err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalogue, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (cp cataloguePlan) toPlan() (subscription.Plan, error) {
	currency := strings.ToUpper(cp.Currency)
	if currency == "" {
		currency = "USD"
	}

	p := subscription.Plan{
		ID:            cp.ID,
		Name:          cp.Name,
		Description:   cp.Description,
		MonthlyPrice:  subscription.Money{Amount: cp.Monthly, Currency: currency},
		PriceID:       cp.PriceID,
		YearlyPriceID: cp.YearlyPriceID,
		IsActive:      !cp.Inactive,
	}
	if cp.Yearly != nil {
		p.YearlyPrice = &subscription.Money{Amount: *cp.Yearly, Currency: currency}
	}

	var err error
	if p.UserLimit, err = cp.Limits.Profiles.value(subscription.UnlimitedProfiles); err != nil {
		return p, fmt.Errorf("plan %s profiles: %w", cp.ID, err)
	}
	if p.MemoryLimit, err = cp.Limits.Memories.value(subscription.UnlimitedMemories); err != nil {
		return p, fmt.Errorf("plan %s memories: %w", cp.ID, err)
	}
	if p.FamilySharing, err = cp.Limits.FamilyMembers.value(0); err != nil {
		return p, fmt.Errorf("plan %s family_members: %w", cp.ID, err)
	}

	for _, f := range cp.Features {
		switch f {
		case "ai":
			p.AIFeatures = true
		case "export":
			p.ExportFeatures = true
		case "offline":
			p.OfflineMode = true
		case "priority_support":
			p.PrioritySupport = true
		default:
			return p, fmt.Errorf("plan %s: unknown feature %q", cp.ID, f)
		}
	}
	return p, nil
}
