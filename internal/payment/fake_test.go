package payment

import (
	"context"
	"sync"

	"github.com/noah-isme/backend-checkout/internal/catalog"
	"github.com/noah-isme/backend-checkout/internal/pricing"
)

type fakeProvider struct {
	mu       sync.Mutex
	intents  []IntentRequest
	sessions []SessionRequest
	lookups  []string

	intent  IntentResult
	session SessionResult
	err     error
}

func (f *fakeProvider) CreatePaymentIntent(_ context.Context, req IntentRequest) (IntentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, req)
	if f.err != nil {
		return IntentResult{}, f.err
	}
	return f.intent, nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req SessionRequest) (SessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, req)
	if f.err != nil {
		return SessionResult{}, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) GetCheckoutSession(_ context.Context, id string) (SessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, id)
	if f.err != nil {
		return SessionResult{}, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intents) + len(f.sessions)
}

type fakeCatalog map[string]catalog.Product

func (c fakeCatalog) ProductByServiceID(_ context.Context, id string) (catalog.Product, error) {
	p, ok := c[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func newTestService(p Provider, policy pricing.Policy) *Service {
	return &Service{
		Provider:     p,
		ProviderName: "fake",
		Calculator:   pricing.Calculator{Policy: policy, Currency: "usd"},
		Description:  "Payment for products/services",
		SuccessURL:   "https://shop.example/success.html",
		CancelURL:    "https://shop.example/cancel.html",
		NewRef:       func() string { return "ref-1" },
	}
}
