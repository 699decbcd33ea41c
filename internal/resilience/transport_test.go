package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-checkout/internal/resilience"
)

func TestTransportDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := resilience.NewHTTPClient(srv.Client(), resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 10, OpenFor: time.Minute}))
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.EqualValues(t, 1, hits.Load())
}

func TestTransportOpenCircuitFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	rejected := testutil.ToFloat64(resilience.ProviderBreakerRejections.WithLabelValues("stripe"))
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 1, OpenFor: time.Minute})
	client := resilience.NewHTTPClient(srv.Client(), breaker)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = client.Get(srv.URL)
	require.True(t, errors.Is(err, resilience.ErrOpenCircuit), "got %v", err)
	require.EqualValues(t, 1, hits.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.ProviderBreakerRejections.WithLabelValues("stripe"))-rejected)
}

func TestTransportClientErrorsKeepCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	t.Cleanup(srv.Close)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{Provider: "stripe", MinRequests: 1, OpenFor: time.Minute})
	client := resilience.NewHTTPClient(srv.Client(), breaker)
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.Equal(t, resilience.Closed, breaker.State())
}
