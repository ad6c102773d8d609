package api

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/Armour007/wellness-backend/internal/config"
	"github.com/Armour007/wellness-backend/internal/logging"
)

const ServiceName = "wellness-backend"

// SetupOTel initializes OpenTelemetry tracing when enabled.
// Returns a shutdown func that should be deferred by the caller.
func SetupOTel(cfg config.OTel) (func(context.Context) error, bool) {
	noop := func(ctx context.Context) error { return nil }
	if !cfg.Enable && cfg.Endpoint == "" {
		return noop, false
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure()}
	if strings.Contains(endpoint, "://") {
		opts = []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	client := otlptracehttp.NewClient(opts...)
	exp, err := otlptrace.New(context.Background(), client)
	if err != nil {
		logging.L().Warn("otel exporter init failed", zap.Error(err))
		return noop, false
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
		),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, true
}
