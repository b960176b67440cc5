package observability

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/revroute/internal/config"
	"github.com/smallbiznis/revroute/internal/observability/metrics"
	"github.com/smallbiznis/revroute/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func provideTracingConfig(cfg config.Config) tracing.Config {
	protocol := strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
	return tracing.Config{
		Enabled:          getenvBool("OTEL_ENABLED", false),
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		ExporterProtocol: protocol,
	}
}

func configureBatchMetrics(cfg config.Config) {
	metrics.BatchWithConfig(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}

func registerHooks(lc fx.Lifecycle, provider *sdktrace.TracerProvider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("observability",
	fx.Provide(provideTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Invoke(configureBatchMetrics),
	fx.Invoke(registerHooks),
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
