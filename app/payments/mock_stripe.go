package payments

import (
	"errors"
	"sync"

	"github.com/stripe/stripe-go/v78"
)

// MockGateway is an in-memory Stripe used by tests.
type MockGateway struct {
	Gateway

	mu            sync.Mutex
	Customers     map[string]*stripe.Customer
	Sessions      map[string]*stripe.CheckoutSession
	Subscriptions map[string]*stripe.Subscription

	CreatedSessions []*stripe.CheckoutSessionParams
	Cancelled       []string
	Err             error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Customers:     map[string]*stripe.Customer{},
		Sessions:      map[string]*stripe.CheckoutSession{},
		Subscriptions: map[string]*stripe.Subscription{},
	}
}

var errMockNotFound = errors.New("resource_missing")

func (m *MockGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.CreatedSessions = append(m.CreatedSessions, params)
	s := &stripe.CheckoutSession{
		ID:       "cs_test_1",
		URL:      "https://checkout.stripe.com/c/pay/cs_test_1",
		Metadata: params.Metadata,
	}
	m.Sessions[s.ID] = s
	return s, nil
}

func (m *MockGateway) CreateCustomer(email string, userID string) (*stripe.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c := &stripe.Customer{ID: "cus_" + userID, Email: email, Metadata: map[string]string{UserIDMetadata: userID}}
	m.Customers[c.ID] = c
	return c, nil
}

func (m *MockGateway) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[id]; ok {
		return s, nil
	}
	return nil, errMockNotFound
}

func (m *MockGateway) GetCustomer(id string) (*stripe.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.Customers[id]; ok {
		return c, nil
	}
	return nil, errMockNotFound
}

func (m *MockGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Subscriptions[id]; ok {
		return s, nil
	}
	return nil, errMockNotFound
}

func (m *MockGateway) CancelSubscriptionAtPeriodEnd(id string) (*stripe.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subscriptions[id]
	if !ok {
		return nil, errMockNotFound
	}
	s.CancelAtPeriodEnd = true
	m.Cancelled = append(m.Cancelled, id)
	return s, nil
}
