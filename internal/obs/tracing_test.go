package obs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-checkout/internal/obs"
)

func TestInitTracerDisabled(t *testing.T) {
	for _, cfg := range []obs.TracingConfig{
		{Enabled: false, Exporter: "otlp"},
		{Enabled: true, Exporter: "none"},
	} {
		shutdown, err := obs.InitTracer(context.Background(), cfg)
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	}
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := obs.InitTracer(context.Background(), obs.TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}
