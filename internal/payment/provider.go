package payment

import (
	"context"
	"fmt"

	"github.com/noah-isme/backend-checkout/internal/pricing"
)

// Session modes understood by hosted checkout.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// IntentRequest carries the server-computed charge for a payment intent.
type IntentRequest struct {
	Amount      pricing.Money
	Currency    string
	Description string
	Metadata    map[string]string
}

// IntentResult is the provider handle relayed to the storefront.
type IntentResult struct {
	ID           string
	ClientSecret string
}

// SessionRequest describes a hosted checkout session. Either LineItems or
// PriceID is set; PriceID refers to a price registered with the provider.
type SessionRequest struct {
	Mode       string
	LineItems  []pricing.LineItem
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// SessionResult describes a hosted checkout session.
type SessionResult struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (IntentResult, error)
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (SessionResult, error)
	GetCheckoutSession(ctx context.Context, id string) (SessionResult, error)
}

// ProviderError is the normalised form of an upstream API failure. It keeps
// the provider's diagnostics for logs; clients never see them.
type ProviderError struct {
	Provider  string
	Op        string
	Status    int
	Code      string
	Type      string
	RequestID string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (%s): %v", e.Provider, e.Op, e.Code, e.Type, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
