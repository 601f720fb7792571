package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for development and tests.
// Simulates successful checkout sessions without calling Stripe API.
type MockProvider struct {
	// CreateCheckoutSessionFunc allows customizing session creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// BaseURL is the host of generated session URLs.
	BaseURL string

	mu sync.Mutex

	// Sessions stores created sessions for retrieval
	Sessions map[string]*CheckoutSession

	// Requests stores the params of every call, in order
	Requests []CreateCheckoutSessionParams

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		BaseURL:  "https://checkout.mock.local",
		Sessions: make(map[string]*CheckoutSession),
		CallLog:  []string{},
	}
}

// CreateCheckoutSession creates a mock checkout session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%d, %s)", params.TotalCents(), params.Currency))
	m.Requests = append(m.Requests, params)
	m.mu.Unlock()

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	// Default mock behavior: create an open session
	id := "cs_test_" + uuid.New().String()
	session := &CheckoutSession{
		ID:               id,
		URL:              m.BaseURL + "/pay/" + id,
		AmountTotalCents: params.TotalCents(),
		Currency:         params.Currency,
	}

	m.mu.Lock()
	m.Sessions[id] = session
	m.mu.Unlock()

	return session, nil
}

// Calls returns how many sessions were requested.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the params of the most recent call.
func (m *MockProvider) LastRequest() (CreateCheckoutSessionParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return CreateCheckoutSessionParams{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}
