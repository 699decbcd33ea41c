package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrNotConfigured is returned by a Checker for an optional dependency that is
// not in use. Such dependencies report "disabled" and never fail readiness.
var ErrNotConfigured = errors.New("not configured")

// DefaultBanner is the body served by the root health check.
const DefaultBanner = "Checkout backend is running!"

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness; main flips it off when shutdown begins so load
// balancers drain the instance before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports the current readiness flag.
func IsReady() bool { return ready.Load() }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	Banner       string
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Root answers GET / with a static confirmation string.
func (h Handler) Root(w http.ResponseWriter, _ *http.Request) {
	banner := h.Banner
	if banner == "" {
		banner = DefaultBanner
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(banner))
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	status := map[string]string{"db": "disabled", "redis": "disabled"}
	healthy := true
	if h.Checker != nil {
		ctx := r.Context()
		status["db"], healthy = probe(h.Checker.PingDB(ctx, h.dbTimeout()), healthy)
		status["redis"], healthy = probe(h.Checker.PingRedis(ctx, h.redisTimeout()), healthy)
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func probe(err error, healthy bool) (string, bool) {
	switch {
	case err == nil:
		return "ok", healthy
	case errors.Is(err, ErrNotConfigured):
		return "disabled", healthy
	default:
		return err.Error(), false
	}
}

func (h Handler) dbTimeout() time.Duration {
	if h.DBTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DBTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
