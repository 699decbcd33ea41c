package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Payment provider breaker collectors, labelled by provider name.
var (
	ProviderBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "checkout",
		Name:      "provider_breaker_state",
		Help:      "Payment provider breaker state: 0=closed, 1=open, 2=half-open.",
	}, []string{"provider"})
	ProviderBreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "provider_breaker_transitions_total",
		Help:      "Payment provider breaker state transitions.",
	}, []string{"provider", "from", "to"})
	ProviderBreakerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "provider_breaker_rejections_total",
		Help:      "Provider calls refused because the breaker was open.",
	}, []string{"provider"})
)

// MustRegisterMetrics registers the breaker collectors on reg. Registering
// twice on the same registry is a no-op.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ProviderBreakerState, ProviderBreakerTransitions, ProviderBreakerRejections} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
