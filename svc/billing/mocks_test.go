package billing_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

type mockService struct {
	mock.Mock
}

var _ subscription.Service = (*mockService)(nil)

func (m *mockService) ListActivePlans(ctx context.Context) ([]subscription.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]subscription.Plan)
	return plans, args.Error(1)
}

func (m *mockService) GetPlan(ctx context.Context, planID string) (*subscription.Plan, error) {
	args := m.Called(ctx, planID)
	p, _ := args.Get(0).(*subscription.Plan)
	return p, args.Error(1)
}

func (m *mockService) Check(ctx context.Context, userID uuid.UUID, action subscription.Action) (subscription.Decision, error) {
	args := m.Called(ctx, userID, action)
	return args.Get(0).(subscription.Decision), args.Error(1)
}

func (m *mockService) Entitlements(ctx context.Context, userID uuid.UUID) (*subscription.Entitlements, error) {
	args := m.Called(ctx, userID)
	e, _ := args.Get(0).(*subscription.Entitlements)
	return e, args.Error(1)
}

func (m *mockService) GetSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return m.subResult(m.Called(ctx, userID))
}

func (m *mockService) StartCheckout(ctx context.Context, userID uuid.UUID, planID string, opts subscription.CheckoutOptions) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, userID, planID, opts)
	s, _ := args.Get(0).(*subscription.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockService) Cancel(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return m.subResult(m.Called(ctx, userID))
}

func (m *mockService) Reactivate(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return m.subResult(m.Called(ctx, userID))
}

func (m *mockService) Reconcile(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return m.subResult(m.Called(ctx, userID))
}

func (m *mockService) SyncSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return m.subResult(m.Called(ctx, userID))
}

func (m *mockService) ListPayments(ctx context.Context, userID uuid.UUID) ([]subscription.Payment, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]subscription.Payment)
	return p, args.Error(1)
}

func (m *mockService) ApplyEvent(ctx context.Context, event subscription.ProcessorEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *mockService) subResult(args mock.Arguments) (*subscription.Subscription, error) {
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

var _ subscription.Processor = (*mockProcessor)(nil)

func (m *mockProcessor) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*subscription.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockProcessor) SetCancelAtPeriodEnd(ctx context.Context, providerSubID string, cancel bool) (*subscription.RemoteSubscription, error) {
	args := m.Called(ctx, providerSubID, cancel)
	r, _ := args.Get(0).(*subscription.RemoteSubscription)
	return r, args.Error(1)
}

func (m *mockProcessor) GetSubscription(ctx context.Context, providerSubID string) (*subscription.RemoteSubscription, error) {
	args := m.Called(ctx, providerSubID)
	r, _ := args.Get(0).(*subscription.RemoteSubscription)
	return r, args.Error(1)
}

func (m *mockProcessor) ListInvoices(ctx context.Context, providerSubID string, limit int) ([]subscription.Payment, error) {
	args := m.Called(ctx, providerSubID, limit)
	p, _ := args.Get(0).([]subscription.Payment)
	return p, args.Error(1)
}

func (m *mockProcessor) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.ProcessorEvent, error) {
	args := m.Called(ctx, payload, signature)
	e, _ := args.Get(0).(*subscription.ProcessorEvent)
	return e, args.Error(1)
}
