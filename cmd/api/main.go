package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-checkout/internal/app"
	"github.com/noah-isme/backend-checkout/internal/catalog"
	"github.com/noah-isme/backend-checkout/internal/config"
	"github.com/noah-isme/backend-checkout/internal/health"
	"github.com/noah-isme/backend-checkout/internal/obs"
	"github.com/noah-isme/backend-checkout/internal/payment"
	"github.com/noah-isme/backend-checkout/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		Enabled:       cfg.Obs.TracingEnabled,
		ServiceName:   "checkout-api",
		Environment:   cfg.AppEnv,
		Exporter:      cfg.Obs.TracingExporter,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Logger:        logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Provider:     "stripe",
		MinRequests:  cfg.BreakerMinRequests,
		FailureRatio: cfg.BreakerFailureRatio,
		OpenFor:      cfg.BreakerOpenFor,
		Logger:       logger,
	})
	provider, err := payment.NewStripe(payment.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		BaseURL:   cfg.StripeAPIBaseURL,
		Timeout:   cfg.StripeHTTPTimeout,
		Breaker:   breaker,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise stripe")
	}

	deps := app.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Provider:     provider,
		ProviderName: "stripe",
		Gatherer:     prometheus.DefaultGatherer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.RedisURL != "" {
		rdb, err := app.OpenRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		deps.Redis = rdb
	} else {
		logger.Warn().Msg("REDIS_URL not set, rate limits are per instance")
	}
	deps.Limiter = app.NewLimiter(cfg, deps.Redis)

	if cfg.CatalogEnabled() {
		if cfg.CatalogAutoMigrate {
			if err := catalog.MigrateUp(cfg.DatabaseURL, logger); err != nil {
				logger.Fatal().Err(err).Msg("migrate catalog")
			}
		}
		pool, err := app.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect catalog database")
		}
		defer pool.Close()
		deps.DB = pool
		var store catalog.Store = catalog.PGStore{DB: pool}
		if deps.Redis != nil {
			store = catalog.CachedStore{Store: store, Cache: catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL)}
		}
		deps.Catalog = store
	}

	if cfg.Obs.MetricsEnabled {
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, cfg.Obs.MetricsBuckets, nil)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           app.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Bool("catalog", cfg.CatalogEnabled()).Str("cart_policy", string(cfg.CartPolicy)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited unexpectedly")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
