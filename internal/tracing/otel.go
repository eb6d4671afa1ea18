package tracing

import (
	"context"
	"time"

	"insure-crm/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const TracerName = "insure-crm/notifications"

// InitTracer installs an OTLP exporter when OTEL_EXPORTER_ENDPOINT is set.
// Without it the global no-op provider stays in place and spans cost nothing.
func InitTracer(lc fx.Lifecycle, cfg *config.Config, logr *zap.Logger) error {
	if cfg.OTelEndpoint == "" {
		return nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.AppId)))
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logr.Info("tracing enabled", zap.String("endpoint", cfg.OTelEndpoint))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	})
	return nil
}
