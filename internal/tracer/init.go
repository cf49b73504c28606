// Package tracer wires the OpenTelemetry SDK TracerProvider and OTLP
// exporter that otelfiber's HTTP middleware and the orchestrator's
// per-stage spans both export through.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"tenderanalysis/internal/config"
	"tenderanalysis/internal/pkg/logger"
)

// Init installs an SDK TracerProvider with an OTLP/HTTP batch exporter
// as the global provider, so otelfiber's inbound-request spans and the
// orchestrator's stage spans (internal/orchestrator) both actually
// export instead of going to the no-op default provider. Tracing is
// active only when cfg.App.Environment is "production"; every other
// environment keeps the no-op provider so local runs and CI never need
// a reachable collector. Returns a shutdown func that flushes pending
// spans; callers should defer it.
func Init(cfg *config.Config, log logger.ILogger) func(context.Context) error {
	if cfg.App.Environment != "production" {
		log.Info("tracer", "opentelemetry tracing disabled outside production", nil)
		return func(context.Context) error { return nil }
	}

	ctx := context.Background()
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.App.OtelExporterEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("tracer", "failed to create OTLP exporter, tracing disabled", map[string]interface{}{"error": err.Error()})
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("tenderanalysis"),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracer", "opentelemetry tracer initialized", map[string]interface{}{"endpoint": cfg.App.OtelExporterEndpoint})
	return tp.Shutdown
}
