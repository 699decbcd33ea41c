package resilience_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-checkout/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 2, FailureRatio: 0.5, OpenFor: 50 * time.Millisecond})
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should admit a trial after cool off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "only one trial call while half-open")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "breaker should close after successful trial")
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 1, OpenFor: 10 * time.Millisecond})
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	time.Sleep(15 * time.Millisecond)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 4, FailureRatio: 0.5, OpenFor: time.Minute})
	ctx := context.Background()
	for _, ok := range []bool{true, true, false, true, true} {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, ok)
	}
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerLogsProviderTransitions(t *testing.T) {
	var buf bytes.Buffer
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Provider:    "stripe",
		MinRequests: 1,
		OpenFor:     time.Minute,
		Logger:      zerolog.New(&buf),
	})
	ctx := context.Background()
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	out := buf.String()
	require.Contains(t, out, `"provider":"stripe"`)
	require.Contains(t, out, `"to":"open"`)
	require.Contains(t, out, `"level":"warn"`)
}
