package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/zap"
)

// InitTracing sets up a basic tracer provider (no exporter wired yet).
// Returns a shutdown func to flush spans.
func InitTracing(service string, logger *zap.Logger) (func(context.Context) error, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	if logger != nil {
		logger.Info("tracing initialized", zap.String("service", service), zap.String("exporter", "none"))
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
