package subscription

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

const maxPaymentHistory = 10

// ListPayments reads the user's most recent invoices straight from the
// processor. Results are never cached.
func (s *service) ListPayments(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.ProviderSubID == "" {
		return []Payment{}, nil
	}

	payments, err := s.processor.ListInvoices(ctx, sub.ProviderSubID, s.historyLimit)
	if err != nil {
		return nil, newProcessorError("list_invoices", err)
	}

	if payments == nil {
		return []Payment{}, nil
	}
	slices.SortStableFunc(payments, func(a, b Payment) int {
		return b.BilledAt.Compare(a.BilledAt)
	})
	if len(payments) > s.historyLimit {
		payments = payments[:s.historyLimit]
	}
	return payments, nil
}
