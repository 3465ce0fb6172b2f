package obs

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Meter returns the global meter registered under name, e.g.
// obs.Meter("github.com/shirokuma-kb/core/enrichment").
func Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// Tracer returns the global tracer registered under name.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// Providers bundles the SDK providers so callers can flush/shutdown
// them at process exit.
type Providers struct {
	Meter *sdkmetric.MeterProvider
	Trace *sdktrace.TracerProvider
}

// NewProviders builds metric and trace providers writing to stderr via
// the stdout exporters and installs them as the OpenTelemetry global
// providers, so obs.Meter/obs.Tracer calls throughout enrichment start
// producing real telemetry instead of the library's no-op defaults.
func NewProviders() (*Providers, error) {
	w := telemetryWriter()
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
	)

	otel.SetMeterProvider(meterProvider)
	otel.SetTracerProvider(traceProvider)

	return &Providers{Meter: meterProvider, Trace: traceProvider}, nil
}

// telemetryWriter sends exported spans/metrics to stderr only under
// the same debug gate Debugf uses; otherwise they're discarded, since
// the point of wiring the SDK here is exercising the instrumentation
// path in internal/enrichment, not spamming stdout by default.
func telemetryWriter() io.Writer {
	if debugEnabled {
		return os.Stderr
	}
	return io.Discard
}

// Shutdown flushes and closes both providers, logging (never failing)
// on error — observability teardown must never block process exit.
func (p *Providers) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil {
			Errorf("telemetry: meter provider shutdown: %v", err)
		}
	}
	if p.Trace != nil {
		if err := p.Trace.Shutdown(ctx); err != nil {
			Errorf("telemetry: trace provider shutdown: %v", err)
		}
	}
}
