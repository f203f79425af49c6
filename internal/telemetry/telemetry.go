// Package telemetry wires up the CLI wrapper's OpenTelemetry tracer provider
// and structured logger. The planner itself performs no I/O and emits no
// telemetry; this package exists only for cmd/planquery.
package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer builds and registers a tracer provider exporting spans via OTLP
// over HTTP, matching the exporter the teacher's gateway depends on. The
// returned shutdown func must be called before the process exits so buffered
// spans are flushed.
func InitTracer(ctx context.Context, serviceName, version string) (shutdown func(context.Context) error, err error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the named tracer off the globally registered provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// NewLogger builds the CLI's structured logger: JSON to stdout, matching
// server/gateway.go's slog.NewJSONHandler(os.Stdout, nil) convention.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
