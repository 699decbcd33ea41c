package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-checkout/internal/config"
	"github.com/noah-isme/backend-checkout/internal/health"
	"github.com/noah-isme/backend-checkout/internal/obs"
	"github.com/noah-isme/backend-checkout/internal/payment"
	"github.com/noah-isme/backend-checkout/internal/pricing"
	"github.com/noah-isme/backend-checkout/internal/ratelimit"
	"github.com/noah-isme/backend-checkout/internal/security"
)

// NewService builds the checkout service from configuration.
func NewService(deps Dependencies) *payment.Service {
	cfg := deps.Config
	return &payment.Service{
		Provider:     deps.Provider,
		ProviderName: deps.ProviderName,
		Calculator: pricing.Calculator{
			Policy:   cfg.CartPolicy,
			Currency: cfg.CurrencyCode,
			MaxItems: cfg.CartMaxItems,
		},
		Description: cfg.PaymentDescription,
		SuccessURL:  cfg.CheckoutSuccessURL,
		CancelURL:   cfg.CheckoutCancelURL,
		Catalog:     deps.Catalog,
	}
}

// NewRouter assembles the HTTP surface. The returned handler is wrapped by
// otelhttp so every request, including rejected ones, gets a server span.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	svc := NewService(deps)
	handler := &payment.Handler{Svc: svc, Validate: payment.NewValidator()}
	pages := payment.Pages{Svc: svc, HomeURL: cfg.PublicSiteURL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(obs.SpanRoute)
	if deps.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: deps.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(corsOptions(cfg)))
	r.Use(security.Headers{
		Enable:                cfg.SecurityHeaders,
		EnableHSTS:            cfg.EnableHSTS,
		HSTSIncludeSubdomains: true,
	}.Middleware)

	healthHandler := health.Handler{Checker: readinessChecker{db: deps.DB, redis: deps.Redis}}
	r.Get("/", healthHandler.Root)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	onLimiterError := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }

	// Each session_id on /success costs a provider lookup, so the page has
	// its own per-IP budget.
	r.With(ratelimit.Handler{
		Limiter: deps.Limiter,
		Key:     func(r *http.Request) string { return "lookup:" + ratelimit.ByClientIP(r) },
		OnError: onLimiterError,
	}.Middleware).Get("/success", pages.Success)
	r.Get("/cancel", pages.Cancel)

	r.Group(func(g chi.Router) {
		g.Use(security.BodyLimit{Max: cfg.RequestBodyMaxBytes}.Middleware)
		g.Use(ratelimit.Handler{
			Limiter: deps.Limiter,
			OnError: onLimiterError,
		}.Middleware)
		g.Post("/create-payment-intent", handler.CreatePaymentIntent)
		g.Post("/create-checkout-session", handler.CreateCheckoutSession)
		if deps.Catalog != nil {
			g.Post("/create-service-checkout-session", handler.CreateServiceCheckoutSession)
		}
	})

	return otelhttp.NewHandler(r, "checkout-api", otelhttp.WithSpanNameFormatter(obs.SpanName))
}

// corsOptions allows the configured origins, falling back to the storefront
// origin. A wildcard is only honoured when listed explicitly; with nothing
// configured every cross-origin request is refused.
func corsOptions(cfg *config.Config) cors.Options {
	opts := cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 && cfg.PublicSiteURL != "" {
		opts.AllowedOrigins = []string{cfg.PublicSiteURL}
	}
	if len(opts.AllowedOrigins) == 0 {
		// go-chi/cors treats an empty list as "*".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return opts
}
