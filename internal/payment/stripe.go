package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-checkout/internal/resilience"
)

// StripeConfig configures the Stripe provider.
type StripeConfig struct {
	SecretKey string
	// BaseURL overrides the API host, mainly for stubs in tests.
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Breaker   *resilience.Breaker
	Logger    zerolog.Logger
}

// Stripe implements Provider on top of stripe-go. Each instance owns its own
// client and key; the package-level stripe.Key is never touched.
type Stripe struct {
	client *stripe.Client
}

// NewStripe builds a Stripe provider. Network retries are disabled so a
// failed call surfaces to the caller immediately.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 80 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := resilience.NewHTTPClient(&http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "stripe " + r.Method + " " + r.URL.Path
			}),
		),
	}, cfg.Breaker)

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{logger: cfg.Logger.With().Str("component", "stripe").Logger()},
	}
	if u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); u != "" {
		backendCfg.URL = stripe.String(u)
	}
	return &Stripe{
		client: stripe.NewClient(key, stripe.WithBackends(stripe.NewBackendsWithConfig(backendCfg))),
	}, nil
}

// CreatePaymentIntent opens a payment intent for the exact amount given.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, req IntentRequest) (IntentResult, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	pi, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return IntentResult{}, stripeError("create_payment_intent", err)
	}
	return IntentResult{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateCheckoutSession opens a hosted checkout session.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (SessionResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModePayment
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(mode),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	if req.PriceID != "" {
		params.LineItems = []*stripe.CheckoutSessionCreateLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}}
	} else {
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.LineItems = make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(req.LineItems))
		for _, line := range req.LineItems {
			params.LineItems = append(params.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(line.Currency),
					UnitAmount: stripe.Int64(line.UnitAmount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(line.Name),
					},
				},
				Quantity: stripe.Int64(line.Quantity),
			})
		}
	}
	cs, err := s.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return SessionResult{}, stripeError("create_checkout_session", err)
	}
	return sessionResult(cs), nil
}

// GetCheckoutSession retrieves a hosted checkout session by id.
func (s *Stripe) GetCheckoutSession(ctx context.Context, id string) (SessionResult, error) {
	cs, err := s.client.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return SessionResult{}, stripeError("get_checkout_session", err)
	}
	return sessionResult(cs), nil
}

func sessionResult(cs *stripe.CheckoutSession) SessionResult {
	out := SessionResult{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		CustomerEmail: cs.CustomerEmail,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
	}
	if out.CustomerEmail == "" && cs.CustomerDetails != nil {
		out.CustomerEmail = cs.CustomerDetails.Email
	}
	return out
}

func stripeError(op string, err error) error {
	pe := &ProviderError{Provider: "stripe", Op: op, Err: err}
	var se *stripe.Error
	if errors.As(err, &se) {
		pe.Status = se.HTTPStatusCode
		pe.Code = string(se.Code)
		pe.Type = string(se.Type)
		pe.RequestID = se.RequestID
	}
	return pe
}

// stripeLogger routes stripe-go diagnostics through zerolog.
type stripeLogger struct {
	logger zerolog.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }
func (l stripeLogger) Infof(format string, v ...interface{})  { l.logger.Debug().Msgf(format, v...) }
func (l stripeLogger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l stripeLogger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
