// Package telemetry wires OpenTelemetry tracing and metrics behind a
// single Setup call. The exporter is chosen by configuration so local
// runs can print to stdout while deployments ship OTLP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/dafibh/fortuna/internal/config"
	"gitlab.com/dafibh/fortuna/internal/logger"
)

const scopeName = "gitlab.com/dafibh/fortuna"

// Setup installs global tracer and meter providers per the config and
// returns a shutdown function that flushes both. When no exporter is
// configured it installs nothing and returns a no-op shutdown.
func Setup(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if cfg.OTelExporter == config.ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.OTelServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	traceExp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	metricExp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", cfg.OTelExporter).
		Str("service", cfg.OTelServiceName).
		Msg("Telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newTraceExporter(ctx context.Context, cfg *config.Config) (sdktrace.SpanExporter, error) {
	switch cfg.OTelExporter {
	case config.ExporterGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.OTelEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTelEndpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	case config.ExporterHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.OTelEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTelEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
}

func newMetricExporter(ctx context.Context, cfg *config.Config) (sdkmetric.Exporter, error) {
	switch cfg.OTelExporter {
	case config.ExporterGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if cfg.OTelEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTelEndpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case config.ExporterHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if cfg.OTelEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTelEndpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return stdoutmetric.New()
	}
}

// Tracer returns the application tracer. Spans are cheap no-ops until
// Setup installs a real provider.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}
