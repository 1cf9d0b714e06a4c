package subscription_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.CheckoutSession), args.Error(1)
}

func (m *mockProcessor) SetCancelAtPeriodEnd(ctx context.Context, providerSubID string, cancel bool) (*subscription.RemoteSubscription, error) {
	args := m.Called(ctx, providerSubID, cancel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.RemoteSubscription), args.Error(1)
}

func (m *mockProcessor) GetSubscription(ctx context.Context, providerSubID string) (*subscription.RemoteSubscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.RemoteSubscription), args.Error(1)
}

func (m *mockProcessor) ListInvoices(ctx context.Context, providerSubID string, limit int) ([]subscription.Payment, error) {
	args := m.Called(ctx, providerSubID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Payment), args.Error(1)
}

func (m *mockProcessor) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.ProcessorEvent, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.ProcessorEvent), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SubscriptionChanged(ctx context.Context, change subscription.Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// memStore is a SubscriptionStore whose Save can be made to fail.
type memStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]subscription.Subscription
	saveErr error
	saves   int
}

func newMemStore(subs ...subscription.Subscription) *memStore {
	s := &memStore{rows: make(map[uuid.UUID]subscription.Subscription)}
	for _, sub := range subs {
		s.rows[sub.UserID] = sub
	}
	return s
}

func (s *memStore) Get(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[userID]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *memStore) Save(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.rows[sub.UserID] = *sub
	return nil
}

func (s *memStore) failSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) row(userID uuid.UUID) (subscription.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[userID]
	return sub, ok
}

type memUsers map[uuid.UUID]subscription.User

func (u memUsers) GetUser(_ context.Context, userID uuid.UUID) (*subscription.User, error) {
	user, ok := u[userID]
	if !ok {
		return nil, subscription.ErrUserNotFound
	}
	return &user, nil
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testPlans() []subscription.Plan {
	return []subscription.Plan{
		{
			ID:            "free",
			Name:          "Free",
			MonthlyPrice:  subscription.Money{Amount: 0, Currency: "USD"},
			UserLimit:     1,
			MemoryLimit:   50,
			FamilySharing: 0,
			IsActive:      true,
		},
		{
			ID:             "basic",
			Name:           "Basic",
			MonthlyPrice:   subscription.Money{Amount: 499, Currency: "USD"},
			PriceID:        "pri_basic_monthly",
			UserLimit:      3,
			MemoryLimit:    500,
			FamilySharing:  2,
			ExportFeatures: true,
			IsActive:       true,
		},
		{
			ID:              "premium",
			Name:            "Premium",
			MonthlyPrice:    subscription.Money{Amount: 999, Currency: "USD"},
			YearlyPrice:     &subscription.Money{Amount: 9999, Currency: "USD"},
			PriceID:         "pri_premium_monthly",
			YearlyPriceID:   "pri_premium_yearly",
			UserLimit:       subscription.UnlimitedProfiles,
			MemoryLimit:     subscription.UnlimitedMemories,
			FamilySharing:   6,
			ExportFeatures:  true,
			PrioritySupport: true,
			AIFeatures:      true,
			OfflineMode:     true,
			IsActive:        true,
		},
		{
			ID:           "legacy",
			Name:         "Legacy",
			MonthlyPrice: subscription.Money{Amount: 299, Currency: "USD"},
			PriceID:      "pri_legacy",
			UserLimit:    2,
			MemoryLimit:  100,
			IsActive:     false,
		},
	}
}

func planByID(id string) *subscription.Plan {
	for _, p := range testPlans() {
		if p.ID == id {
			return &p
		}
	}
	return nil
}

func ptrTime(t time.Time) *time.Time { return &t }
