package payment

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/noah-isme/backend-checkout/internal/obs"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("checkout", prometheus.NewRegistry())
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}
