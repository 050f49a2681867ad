package tracer

import (
	"context"
	"fmt"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const ServiceName = "storefront-chat-backend"

type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer installs the global tracer provider used by otelfiber and the
// message pipeline spans. With tracing disabled the no-op provider stays in
// place and the returned shutdown does nothing.
func InitTracer(cfg config.AppConfig, log logger.ILogger) (ShutdownFunc, error) {
	if !cfg.OtelEnabled {
		log.Info("Tracer", "Tracing disabled", map[string]interface{}{"hint": "set OTEL_ENABLED=true"})
		return noop, nil
	}

	// Plain HTTP; the collector (Jaeger) runs next to the service.
	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info("Tracer", "OpenTelemetry tracer initialized", map[string]interface{}{
		"endpoint":    cfg.OtelEndpoint,
		"environment": cfg.Environment,
	})
	return tp.Shutdown, nil
}
