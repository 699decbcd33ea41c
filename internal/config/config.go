package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-checkout/internal/pricing"
)

// Config holds application configuration loaded from the environment. It is
// built once in main and handed to the components that need it.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string
	// TrustProxyHeaders makes X-Forwarded-For and X-Real-IP authoritative
	// for the client address. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool

	StripeSecretKey   string `validate:"required"`
	StripeAPIBaseURL  string `validate:"omitempty,url"`
	StripeHTTPTimeout time.Duration

	CurrencyCode        string `validate:"required,len=3,alpha"`
	PaymentDescription  string
	PublicSiteURL       string `validate:"required,url"`
	CheckoutSuccessURL  string `validate:"required,url"`
	CheckoutCancelURL   string `validate:"required,url"`
	CartPolicy          pricing.Policy
	CartMaxItems        int   `validate:"gte=1,lte=1000"`
	RequestBodyMaxBytes int64 `validate:"gte=1024"`

	RedisURL           string
	DatabaseURL        string
	CatalogCacheTTL    time.Duration
	CatalogAutoMigrate bool

	RateLimitWindow time.Duration
	RateLimitMax    int

	BreakerMinRequests  int
	BreakerFailureRatio float64 `validate:"gte=0,lte=1"`
	BreakerOpenFor      time.Duration

	SecurityHeaders bool
	EnableHSTS      bool
	ShutdownTimeout time.Duration

	Obs ObsConfig
}

// ObsConfig groups logging, metrics and tracing settings.
type ObsConfig struct {
	LogFormat        string `validate:"oneof=json console"`
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string `validate:"required"`
	MetricsBuckets   []float64
	TracingEnabled   bool
	TracingExporter  string `validate:"oneof=otlp none"`
	OTLPEndpoint     string
	SamplingRatio    float64 `validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	policy, err := pricing.ParsePolicy(k.String("CART_VALIDATION_POLICY"))
	if err != nil {
		return nil, err
	}

	site := strings.TrimRight(valueOrDefault(k.String("PUBLIC_SITE_URL"), "http://localhost:8080"), "/")
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: originsOrDefault(k.String("CORS_ALLOWED_ORIGINS"), site),
		TrustProxyHeaders:  parseBoolDefault(k.String("TRUST_PROXY_HEADERS"), false),

		StripeSecretKey:   strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeAPIBaseURL:  strings.TrimSpace(k.String("STRIPE_API_BASE_URL")),
		StripeHTTPTimeout: parseDuration(k.String("STRIPE_HTTP_TIMEOUT"), "80s"),

		CurrencyCode:        strings.ToLower(valueOrDefault(k.String("CURRENCY_CODE"), "usd")),
		PaymentDescription:  valueOrDefault(k.String("PAYMENT_DESCRIPTION"), "Payment for products/services"),
		PublicSiteURL:       site,
		CheckoutSuccessURL:  valueOrDefault(k.String("CHECKOUT_SUCCESS_URL"), site+"/success.html"),
		CheckoutCancelURL:   valueOrDefault(k.String("CHECKOUT_CANCEL_URL"), site+"/cancel.html"),
		CartPolicy:          policy,
		CartMaxItems:        parseInt(k.String("CART_MAX_ITEMS"), pricing.DefaultMaxItems),
		RequestBodyMaxBytes: int64(parseInt(k.String("REQUEST_BODY_MAX_BYTES"), 64<<10)),

		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),
		DatabaseURL:     strings.TrimSpace(k.String("DATABASE_URL")),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogAutoMigrate: parseBoolDefault(k.String("CATALOG_AUTO_MIGRATE"), false),

		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 30),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		EnableHSTS:      parseBoolDefault(k.String("SECURITY_HSTS"), false),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),

		Obs: ObsConfig{
			LogFormat:        strings.ToLower(valueOrDefault(k.String("OBS_LOG_FORMAT"), "json")),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
			MetricsBuckets:   parseBuckets(k.String("OBS_METRICS_BUCKETS_MS")),
			TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), true),
			TracingExporter:  strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp")),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// CatalogEnabled reports whether a service catalog database is configured.
func (c *Config) CatalogEnabled() bool {
	return c.DatabaseURL != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// originsOrDefault pins CORS to the storefront when no allow-list is given.
func originsOrDefault(value, site string) []string {
	if origins := splitAndTrim(value); len(origins) > 0 {
		return origins
	}
	return []string{site}
}

// parseBuckets reads histogram boundaries in milliseconds, dropping
// non-positive or malformed entries.
func parseBuckets(csv string) []float64 {
	var out []float64
	for _, part := range splitAndTrim(csv) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
