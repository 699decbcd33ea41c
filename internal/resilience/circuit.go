package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned instead of calling the payment provider while its
// breaker is open.
var ErrOpenCircuit = errors.New("resilience: payment provider circuit open")

// State represents the current breaker state.
type State int

const (
	// Closed passes every call through and counts outcomes.
	Closed State = iota
	// Open fails calls immediately until OpenFor has elapsed.
	Open
	// HalfOpen lets a single trial call through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig describes the breaker guarding one payment provider.
type BreakerConfig struct {
	// Provider labels metrics and logs, e.g. "stripe".
	Provider string
	// MinRequests is the number of outcomes observed before the failure
	// ratio is evaluated.
	MinRequests int
	// FailureRatio opens the breaker when failures/total reaches it.
	FailureRatio float64
	// OpenFor is both the cool-off before a trial call and the length of
	// the counting window while closed.
	OpenFor time.Duration
	Logger  zerolog.Logger
}

// Breaker is a failure-ratio circuit breaker for outbound provider calls.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	windowStart time.Time
	openedAt    time.Time
	trialActive bool
}

// NewBreaker builds a closed breaker, filling zero config fields with
// defaults of 10 requests, a 0.5 ratio and 30s.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}
	b := &Breaker{cfg: cfg, state: Closed, windowStart: time.Now()}
	ProviderBreakerState.WithLabelValues(cfg.Provider).Set(stateGaugeValue(Closed))
	return b
}

// Provider returns the label the breaker reports under.
func (b *Breaker) Provider() string { return b.cfg.Provider }

// Allow reports whether a provider call may proceed. After OpenFor an open
// breaker admits exactly one trial call; concurrent callers keep failing fast
// until that trial reports.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.trialActive = true
		return true
	case HalfOpen:
		if b.trialActive {
			return false
		}
		b.trialActive = true
		return true
	default:
		return true
	}
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.trialActive = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if time.Since(b.windowStart) > b.cfg.OpenFor {
		b.failures, b.successes = 0, 0
		b.windowStart = time.Now()
	}
	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
		b.transitionLocked(ctx, Open)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
		b.windowStart = time.Now()
	}

	provider := b.cfg.Provider
	ProviderBreakerState.WithLabelValues(provider).Set(stateGaugeValue(next))
	ProviderBreakerTransitions.WithLabelValues(provider, prev.String(), next.String()).Inc()

	logger := b.cfg.Logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}
	evt := logger.Info()
	if next == Open {
		evt = logger.Warn().Dur("open_for", b.cfg.OpenFor)
	}
	evt.Str("provider", provider).
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("payment provider breaker state changed")
}

func stateGaugeValue(state State) float64 {
	switch state {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}
