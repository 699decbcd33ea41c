package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-checkout/internal/catalog"
	"github.com/noah-isme/backend-checkout/internal/common"
	"github.com/noah-isme/backend-checkout/internal/obs"
	"github.com/noah-isme/backend-checkout/internal/pricing"
)

// Client-facing messages for provider failures.
const (
	MsgIntentFailed  = "Failed to create payment intent."
	MsgSessionFailed = "Failed to create checkout session."
	MsgLookupFailed  = "Failed to retrieve checkout session."
	MsgNotFound      = "Service not found."
)

// SessionIDPlaceholder is substituted by the provider on redirect.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Catalog resolves sellable services for hosted checkout.
type Catalog interface {
	ProductByServiceID(ctx context.Context, serviceID string) (catalog.Product, error)
}

// Service prices carts on the server and opens payment intents and hosted
// checkout sessions with the provider.
type Service struct {
	Provider     Provider
	ProviderName string
	Calculator   pricing.Calculator
	Catalog      Catalog
	Description  string
	SuccessURL   string
	CancelURL    string
	// NewRef generates the cart reference attached to provider metadata.
	NewRef func() string
}

var (
	tracer = otel.Tracer("payment.Service")

	cartTotalOnce sync.Once
	cartTotal     metric.Int64Histogram
)

func cartTotalHistogram() metric.Int64Histogram {
	cartTotalOnce.Do(func() {
		h, err := otel.Meter("payment.Service").Int64Histogram("checkout.cart.total",
			metric.WithDescription("Server-computed cart totals in minor currency units."),
			metric.WithUnit("{minor_unit}"),
		)
		if err == nil {
			cartTotal = h
		}
	})
	return cartTotal
}

// CreateIntent prices items and opens a payment intent for exactly that amount.
func (s *Service) CreateIntent(ctx context.Context, items []pricing.Item) (IntentResult, error) {
	if s == nil || s.Provider == nil {
		return IntentResult{}, common.NewAppError(common.CodeInternal, MsgIntentFailed, http.StatusInternalServerError, errors.New("payment service not configured"))
	}
	ctx, span := tracer.Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	provider := s.providerLabel()
	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.provider", provider), attribute.String("payment.intent.result", result))
		if obs.PaymentIntentTotal != nil {
			obs.PaymentIntentTotal.WithLabelValues(provider, result).Inc()
		}
	}()

	amount, priced, err := s.Calculator.Quote(items)
	if err != nil {
		result = "rejected"
		return IntentResult{}, s.reject(ctx, "create-payment-intent", err)
	}
	ref := s.newRef()
	span.SetAttributes(attribute.Int64("cart.total", amount), attribute.String("cart.ref", ref))
	s.recordTotal(ctx, "intent", amount)

	req := IntentRequest{
		Amount:      amount,
		Currency:    s.Calculator.CurrencyCode(),
		Description: s.Description,
		Metadata: map[string]string{
			"integration_check": "accept_a_payment",
			"cart_ref":          ref,
			"item_count":        strconv.Itoa(priced),
		},
	}
	var res IntentResult
	err = s.callProvider(ctx, "create_payment_intent", func(ctx context.Context) (err error) {
		res, err = s.Provider.CreatePaymentIntent(ctx, req)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failure")
		return IntentResult{}, common.Provider(MsgIntentFailed, err)
	}
	result = "success"
	zerolog.Ctx(ctx).Info().Str("cart_ref", ref).Int64("amount", amount).Str("intent_id", res.ID).Msg("payment intent created")
	return res, nil
}

// CreateSession projects items into line items and opens a hosted checkout session.
func (s *Service) CreateSession(ctx context.Context, items []pricing.Item) (SessionResult, error) {
	if s == nil || s.Provider == nil {
		return SessionResult{}, common.NewAppError(common.CodeInternal, MsgSessionFailed, http.StatusInternalServerError, errors.New("payment service not configured"))
	}
	ctx, span := tracer.Start(ctx, "PaymentService.CreateSession")
	defer span.End()

	provider := s.providerLabel()
	result := "error"
	defer s.countSession(span, provider, "cart", &result)

	lines, total, err := s.Calculator.LineItems(items)
	if err != nil {
		result = "rejected"
		return SessionResult{}, s.reject(ctx, "create-checkout-session", err)
	}
	ref := s.newRef()
	span.SetAttributes(attribute.Int64("cart.total", total), attribute.Int("cart.lines", len(lines)), attribute.String("cart.ref", ref))
	s.recordTotal(ctx, "session", total)

	req := SessionRequest{
		Mode:       ModePayment,
		LineItems:  lines,
		SuccessURL: WithSessionID(s.SuccessURL),
		CancelURL:  s.CancelURL,
		Metadata: map[string]string{
			"cart_ref":   ref,
			"item_count": strconv.Itoa(len(lines)),
		},
	}
	res, err := s.openSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failure")
		return SessionResult{}, err
	}
	result = "success"
	zerolog.Ctx(ctx).Info().Str("cart_ref", ref).Int64("amount", total).Str("session_id", res.ID).Msg("checkout session created")
	return res, nil
}

// CreateServiceSession opens a hosted checkout session for a catalog service.
// Subscription products open in subscription mode.
func (s *Service) CreateServiceSession(ctx context.Context, serviceID string) (SessionResult, error) {
	if s == nil || s.Provider == nil || s.Catalog == nil {
		return SessionResult{}, common.NewAppError(common.CodeNotFound, MsgNotFound, http.StatusNotFound, errors.New("catalog not configured"))
	}
	ctx, span := tracer.Start(ctx, "PaymentService.CreateServiceSession")
	defer span.End()

	provider := s.providerLabel()
	result := "error"
	defer s.countSession(span, provider, "service", &result)

	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		result = "rejected"
		return SessionResult{}, common.Validation(errors.New("service_id is required"))
	}
	span.SetAttributes(attribute.String("catalog.service_id", serviceID))
	product, err := s.Catalog.ProductByServiceID(ctx, serviceID)
	if errors.Is(err, catalog.ErrNotFound) {
		result = "not_found"
		return SessionResult{}, common.NewAppError(common.CodeNotFound, MsgNotFound, http.StatusNotFound, err)
	}
	if err != nil {
		span.RecordError(err)
		zerolog.Ctx(ctx).Error().Err(err).Str("service_id", serviceID).Msg("catalog lookup failed")
		return SessionResult{}, common.NewAppError(common.CodeInternal, MsgSessionFailed, http.StatusInternalServerError, err)
	}

	mode := ModePayment
	if product.IsSubscription() {
		mode = ModeSubscription
	}
	ref := s.newRef()
	s.recordTotal(ctx, "service", product.PriceCents)
	res, err := s.openSession(ctx, SessionRequest{
		Mode:       mode,
		PriceID:    product.ProviderPriceID,
		SuccessURL: WithSessionID(s.SuccessURL),
		CancelURL:  s.CancelURL,
		Metadata: map[string]string{
			"cart_ref":   ref,
			"service_id": product.ServiceID,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failure")
		return SessionResult{}, err
	}
	result = "success"
	zerolog.Ctx(ctx).Info().Str("service_id", product.ServiceID).Str("mode", mode).Str("session_id", res.ID).Msg("service checkout session created")
	return res, nil
}

// LookupSession fetches a hosted checkout session for the confirmation page.
func (s *Service) LookupSession(ctx context.Context, id string) (SessionResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SessionResult{}, common.Validation(errors.New("session_id is required"))
	}
	if s == nil || s.Provider == nil {
		return SessionResult{}, common.NewAppError(common.CodeInternal, MsgLookupFailed, http.StatusInternalServerError, errors.New("payment service not configured"))
	}
	ctx, span := tracer.Start(ctx, "PaymentService.LookupSession")
	defer span.End()

	var res SessionResult
	err := s.callProvider(ctx, "get_checkout_session", func(ctx context.Context) (err error) {
		res, err = s.Provider.GetCheckoutSession(ctx, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return SessionResult{}, common.Provider(MsgLookupFailed, err)
	}
	return res, nil
}

func (s *Service) openSession(ctx context.Context, req SessionRequest) (SessionResult, error) {
	var res SessionResult
	err := s.callProvider(ctx, "create_checkout_session", func(ctx context.Context) (err error) {
		res, err = s.Provider.CreateCheckoutSession(ctx, req)
		return err
	})
	if err != nil {
		return SessionResult{}, common.Provider(MsgSessionFailed, err)
	}
	return res, nil
}

// callProvider runs fn once, records its latency and logs failures with the
// provider diagnostics that are withheld from the client.
func (s *Service) callProvider(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	result := "success"
	if err != nil {
		result = "error"
	}
	if obs.ProviderLatency != nil {
		obs.ProviderLatency.WithLabelValues(s.providerLabel(), op, result).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		event := zerolog.Ctx(ctx).Error().Err(err).Str("provider", s.providerLabel()).Str("operation", op)
		var pe *ProviderError
		if errors.As(err, &pe) {
			event = event.Int("provider_status", pe.Status).Str("provider_code", pe.Code).Str("provider_request_id", pe.RequestID)
		}
		event.Msg("payment provider call failed")
	}
	return err
}

func (s *Service) reject(ctx context.Context, route string, err error) error {
	reason := pricing.Reason(err)
	if obs.CartRejectionsTotal != nil {
		obs.CartRejectionsTotal.WithLabelValues(route, reason).Inc()
	}
	zerolog.Ctx(ctx).Warn().Err(err).Str("reason", reason).Msg("cart rejected")
	return common.Validation(err)
}

func (s *Service) countSession(span trace.Span, provider, kind string, result *string) {
	span.SetAttributes(attribute.String("payment.provider", provider), attribute.String("checkout.kind", kind), attribute.String("checkout.result", *result))
	if obs.CheckoutSessionTotal != nil {
		obs.CheckoutSessionTotal.WithLabelValues(provider, kind, *result).Inc()
	}
}

func (s *Service) recordTotal(ctx context.Context, kind string, amount pricing.Money) {
	if h := cartTotalHistogram(); h != nil {
		h.Record(ctx, amount, metric.WithAttributes(
			attribute.String("checkout.kind", kind),
			attribute.String("currency", s.Calculator.CurrencyCode()),
		))
	}
}

func (s *Service) providerLabel() string {
	name := strings.ToLower(strings.TrimSpace(s.ProviderName))
	if name == "" {
		return "unknown"
	}
	return name
}

func (s *Service) newRef() string {
	if s.NewRef != nil {
		return s.NewRef()
	}
	return uuid.NewString()
}

// WithSessionID appends the provider's session id placeholder to a success URL.
func WithSessionID(successURL string) string {
	if strings.Contains(successURL, SessionIDPlaceholder) {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id=" + SessionIDPlaceholder
}
