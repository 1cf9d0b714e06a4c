package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/familykit/pkg/pg"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

const planColumns = `id, name, description, currency, monthly_amount, yearly_amount,
	price_id, yearly_price_id, user_limit, memory_limit, family_sharing,
	export_features, priority_support, ai_features, offline_mode, is_active`

type planRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	Currency        string `db:"currency"`
	MonthlyAmount   int64  `db:"monthly_amount"`
	YearlyAmount    *int64 `db:"yearly_amount"`
	PriceID         string `db:"price_id"`
	YearlyPriceID   string `db:"yearly_price_id"`
	UserLimit       int64  `db:"user_limit"`
	MemoryLimit     int64  `db:"memory_limit"`
	FamilySharing   int64  `db:"family_sharing"`
	ExportFeatures  bool   `db:"export_features"`
	PrioritySupport bool   `db:"priority_support"`
	AIFeatures      bool   `db:"ai_features"`
	OfflineMode     bool   `db:"offline_mode"`
	IsActive        bool   `db:"is_active"`
}

func (r planRow) toPlan() subscription.Plan {
	p := subscription.Plan{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		MonthlyPrice:    subscription.Money{Amount: r.MonthlyAmount, Currency: r.Currency},
		PriceID:         r.PriceID,
		YearlyPriceID:   r.YearlyPriceID,
		UserLimit:       r.UserLimit,
		MemoryLimit:     r.MemoryLimit,
		FamilySharing:   r.FamilySharing,
		ExportFeatures:  r.ExportFeatures,
		PrioritySupport: r.PrioritySupport,
		AIFeatures:      r.AIFeatures,
		OfflineMode:     r.OfflineMode,
		IsActive:        r.IsActive,
	}
	if r.YearlyAmount != nil {
		p.YearlyPrice = &subscription.Money{Amount: *r.YearlyAmount, Currency: r.Currency}
	}
	return p
}

// PlanStore is the Postgres-backed plan registry.
type PlanStore struct {
	db DB
}

var _ subscription.PlanRegistry = (*PlanStore)(nil)

func NewPlanStore(db DB) *PlanStore {
	if db == nil {
		panic("billing: db is required")
	}
	return &PlanStore{db: db}
}

func (s *PlanStore) ListActive(ctx context.Context) ([]subscription.Plan, error) {
	rows, err := s.db.Query(ctx, `SELECT `+planColumns+` FROM plans
		WHERE is_active ORDER BY monthly_amount, id`)
	if err != nil {
		return nil, errors.Join(subscription.ErrFailedToLoadPlans, err)
	}
	planRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[planRow])
	if err != nil {
		return nil, errors.Join(subscription.ErrFailedToLoadPlans, err)
	}
	plans := make([]subscription.Plan, 0, len(planRows))
	for _, r := range planRows {
		plans = append(plans, r.toPlan())
	}
	return plans, nil
}

func (s *PlanStore) Get(ctx context.Context, planID string) (*subscription.Plan, error) {
	rows, err := s.db.Query(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, planID)
	if err != nil {
		return nil, errors.Join(subscription.ErrFailedToLoadPlans, err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[planRow])
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrPlanNotFound
		}
		return nil, errors.Join(subscription.ErrFailedToLoadPlans, err)
	}
	p := r.toPlan()
	return &p, nil
}

// SeedPlans upserts the catalogue into the plans table. Plans missing from
// the catalogue are left untouched so existing subscriptions keep resolving.
func SeedPlans(ctx context.Context, db DB, plans []subscription.Plan) error {
	batch := &pgx.Batch{}
	for _, p := range plans {
		var yearly *int64
		if p.YearlyPrice != nil {
			yearly = &p.YearlyPrice.Amount
		}
		batch.Queue(`INSERT INTO plans (`+planColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				currency = EXCLUDED.currency,
				monthly_amount = EXCLUDED.monthly_amount,
				yearly_amount = EXCLUDED.yearly_amount,
				price_id = EXCLUDED.price_id,
				yearly_price_id = EXCLUDED.yearly_price_id,
				user_limit = EXCLUDED.user_limit,
				memory_limit = EXCLUDED.memory_limit,
				family_sharing = EXCLUDED.family_sharing,
				export_features = EXCLUDED.export_features,
				priority_support = EXCLUDED.priority_support,
				ai_features = EXCLUDED.ai_features,
				offline_mode = EXCLUDED.offline_mode,
				is_active = EXCLUDED.is_active,
				updated_at = NOW()`,
			p.ID, p.Name, p.Description, p.MonthlyPrice.Currency, p.MonthlyPrice.Amount, yearly,
			p.PriceID, p.YearlyPriceID, p.UserLimit, p.MemoryLimit, p.FamilySharing,
			p.ExportFeatures, p.PrioritySupport, p.AIFeatures, p.OfflineMode, p.IsActive,
		)
	}

	br := db.SendBatch(ctx, batch)
	for _, p := range plans {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Join(ErrFailedToSeedPlans, fmt.Errorf("plan %s: %w", p.ID, err))
		}
	}
	if err := br.Close(); err != nil {
		return errors.Join(ErrFailedToSeedPlans, err)
	}
	return nil
}
