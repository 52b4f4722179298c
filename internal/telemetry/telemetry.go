// Package telemetry sets up the OpenTelemetry tracer this service's
// lifecycle operations annotate their spans with. When tracing is enabled,
// Init installs an SDK tracer provider with no span exporter, so spans are
// not sent anywhere; TracingConfig.OTLPEndpoint is not used.
package telemetry

import (
	"context"

	"github.com/mautops/expense-approval/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer is the package-wide tracer lifecycle spans are started from.
// When tracing is disabled this is otel's default no-op tracer, so
// instrumented code pays no cost and needs no nil checks.
var Tracer oteltrace.Tracer = otel.Tracer("expense-approval")

// Provider holds the SDK trace provider when tracing is enabled, so Shutdown
// can flush it on process exit. When tracing is disabled, Init still returns
// a Provider, with no trace provider inside, and Shutdown does nothing.
type Provider struct {
	tp *trace.TracerProvider
}

// Init configures the global tracer provider from cfg.Tracing. Call once at
// startup; when cfg.Tracing.Enabled is false this is a no-op and Tracer
// remains the default no-op implementation.
func Init(cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer("expense-approval")
	return &Provider{tp: tp}, nil
}

// Shutdown flushes and stops the trace provider, if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
