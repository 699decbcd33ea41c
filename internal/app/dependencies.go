package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-checkout/internal/config"
	"github.com/noah-isme/backend-checkout/internal/health"
	"github.com/noah-isme/backend-checkout/internal/obs"
	"github.com/noah-isme/backend-checkout/internal/payment"
	"github.com/noah-isme/backend-checkout/internal/ratelimit"
)

// Dependencies enumerates the collaborators the HTTP surface is built from.
// DB, Redis and Catalog are optional.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Provider     payment.Provider
	ProviderName string
	Catalog      payment.Catalog
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Limiter      ratelimit.Limiter
	HTTPMetrics  *obs.HTTPMetrics
	Gatherer     prometheus.Gatherer
}

// OpenRedis connects to Redis and instruments the client for tracing and metrics.
func OpenRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// OpenDB connects the catalog pool with query tracing enabled.
func OpenDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "checkout-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewLimiter returns a Redis sliding window limiter shared by every instance
// when Redis is available, and a per-process limiter otherwise.
func NewLimiter(cfg *config.Config, rdb *redis.Client) ratelimit.Limiter {
	if cfg.RateLimitMax <= 0 {
		return nil
	}
	if rdb != nil {
		return ratelimit.SlidingWindow{
			Client: rdb,
			Prefix: "checkout:rl:",
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		}
	}
	return ratelimit.NewMemory(cfg.RateLimitWindow, cfg.RateLimitMax)
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
