package resilience

import (
	"errors"
	"net/http"
)

// Transport is an http.RoundTripper guarded by a Breaker. It never retries:
// each request is attempted at most once and its failure is returned as is.
// Responses with a 5xx status count as failures; 4xx responses are caller
// errors and count as successes for the dependency.
type Transport struct {
	Base    http.RoundTripper
	Breaker *Breaker
}

// RoundTrip implements http.RoundTripper.
func (t Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Breaker == nil {
		return base.RoundTrip(req)
	}
	ctx := req.Context()
	if !t.Breaker.Allow(ctx) {
		ProviderBreakerRejections.WithLabelValues(t.Breaker.Provider()).Inc()
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrOpenCircuit
	}
	resp, err := base.RoundTrip(req)
	switch {
	case err != nil:
		// A caller giving up is not a signal about the dependency.
		t.Breaker.Report(ctx, errors.Is(err, ctx.Err()) && ctx.Err() != nil)
	default:
		t.Breaker.Report(ctx, resp.StatusCode < http.StatusInternalServerError)
	}
	return resp, err
}

// NewHTTPClient returns a client whose transport is wrapped by the breaker.
func NewHTTPClient(base *http.Client, breaker *Breaker) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	clone := *base
	clone.Transport = Transport{Base: base.Transport, Breaker: breaker}
	return &clone
}
