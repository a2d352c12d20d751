// Package observability provides OpenTelemetry-based tracing and RED
// metrics (Rate, Errors, Duration) for the span lifecycle pipeline.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	SampleRate   float64
	BatchTimeout time.Duration
	Enabled      bool
	Insecure     bool
}

// DefaultConfig returns development-friendly defaults with telemetry
// export disabled; callers enable it once an OTLP collector is known.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:  "archon-node",
		Environment:  "development",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   1.0,
		BatchTimeout: 5 * time.Second,
		Enabled:      false,
		Insecure:     true,
	}
}

// Provider manages OpenTelemetry trace and metric providers plus the
// RED instruments used across C1-C6.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	requestCounter   metric.Int64Counter
	errorCounter     metric.Int64Counter
	durationHist     metric.Float64Histogram
	activeOperations metric.Int64UpDownCounter
}

// New creates a Provider. When config.Enabled is false, the returned
// Provider still exposes Tracer/RecordOperation but is a no-op.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.tracer = otel.Tracer(config.ServiceName)
		p.meter = otel.Meter(config.ServiceName)
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			attribute.String("archon.environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: resource merge: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(config.BatchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	p.tracerProvider = tp
	p.tracer = tp.Tracer(config.ServiceName)

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(config.BatchTimeout))),
	)
	otel.SetMeterProvider(mp)
	p.meterProvider = mp
	p.meter = mp.Meter(config.ServiceName)

	if err := p.registerInstruments(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) registerInstruments() error {
	var err error
	p.requestCounter, err = p.meter.Int64Counter("archon.operations.total")
	if err != nil {
		return fmt.Errorf("observability: request counter: %w", err)
	}
	p.errorCounter, err = p.meter.Int64Counter("archon.operations.errors")
	if err != nil {
		return fmt.Errorf("observability: error counter: %w", err)
	}
	p.durationHist, err = p.meter.Float64Histogram("archon.operations.duration_ms")
	if err != nil {
		return fmt.Errorf("observability: duration histogram: %w", err)
	}
	p.activeOperations, err = p.meter.Int64UpDownCounter("archon.operations.active")
	if err != nil {
		return fmt.Errorf("observability: active operations: %w", err)
	}
	return nil
}

// Tracer returns the tracer for manual span creation.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// RecordOperation wraps fn with a span and RED metrics for the named
// component operation (e.g. "ledger.append", "contract.evaluate").
func (p *Provider) RecordOperation(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()

	if p.activeOperations != nil {
		p.activeOperations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", name)))
		defer p.activeOperations.Add(ctx, -1, metric.WithAttributes(attribute.String("operation", name)))
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := metric.WithAttributes(attribute.String("operation", name))
	if p.requestCounter != nil {
		p.requestCounter.Add(ctx, 1, attrs)
	}
	if p.durationHist != nil {
		p.durationHist.Record(ctx, elapsed, attrs)
	}
	if err != nil && p.errorCounter != nil {
		p.errorCounter.Add(ctx, 1, attrs)
		span.RecordError(err)
	}
	return err
}

// Shutdown flushes and closes the providers. Safe to call when
// observability is disabled.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.meterProvider != nil {
		return p.meterProvider.Shutdown(ctx)
	}
	return nil
}
