// Package telemetry sets up OpenTelemetry tracing and metrics for workflowd.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName scopes every tracer and meter created by workflowd.
const InstrumentationName = "github.com/voundbrand/vc83-com-sub014"

// Config controls provider setup.
type Config struct {
	ServiceName string
	// OTLPEndpoint is an OTLP/HTTP collector URL. Empty disables span export;
	// spans are still created so trace ids appear in logs.
	OTLPEndpoint string
}

// Provider owns the tracer and meter providers for the process.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
}

// Setup builds the providers and installs them as the otel globals.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "workflowd"
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}

	reader := sdkmetric.NewManualReader()
	p := &Provider{
		tracerProvider: sdktrace.NewTracerProvider(tpOpts...),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)),
		reader:         reader,
	}
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	return p, nil
}

// Tracer returns the workflowd tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(InstrumentationName)
}

// Metrics creates the workflowd instruments on this provider's meter.
func (p *Provider) Metrics() (*Metrics, error) {
	return NewMetrics(p.meterProvider.Meter(InstrumentationName))
}

// Reader exposes the manual metric reader for on-demand collection.
func (p *Provider) Reader() *sdkmetric.ManualReader {
	return p.reader
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.tracerProvider.Shutdown(ctx),
		p.meterProvider.Shutdown(ctx),
	)
}
