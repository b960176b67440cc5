package billing

import (
	"context"
	"time"

	"github.com/smallbiznis/revroute/internal/billing/adapters"
	"github.com/smallbiznis/revroute/internal/billing/domain"
	"github.com/smallbiznis/revroute/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewCollector builds the configured provider's collector. With no provider
// configured (local development) a log-only collector is used so the batch
// can run end to end without an external account.
func NewCollector(cfg config.Config, log *zap.Logger) (domain.Collector, error) {
	if cfg.BillingProvider == "" {
		log.Warn("no billing provider configured, using log-only collector")
		return &logCollector{log: log.Named("billing.log")}, nil
	}

	registry := adapters.NewRegistry()
	return registry.New(cfg.BillingProvider, domain.AdapterConfig{
		BaseURL: cfg.BillingBaseURL,
		APIKey:  cfg.BillingAPIKey,
	})
}

type logCollector struct {
	log *zap.Logger
}

func (c *logCollector) SuspendCollection(_ context.Context, subscriptionRef string, resumeAt time.Time) error {
	c.log.Info("suspend collection", zap.String("ref", subscriptionRef), zap.Time("resume_at", resumeAt))
	return nil
}

func (c *logCollector) ResumeCollection(_ context.Context, subscriptionRef string) error {
	c.log.Info("resume collection", zap.String("ref", subscriptionRef))
	return nil
}

func (c *logCollector) CreateNegativeInvoiceLine(_ context.Context, customerRef string, amountMinorUnits int64, description, idempotencyKey string) error {
	c.log.Info("create negative invoice line",
		zap.String("customer", customerRef),
		zap.Int64("amount_minor_units", amountMinorUnits),
		zap.String("description", description),
		zap.String("idempotency_key", idempotencyKey),
	)
	return nil
}

var Module = fx.Module("billing.collector",
	fx.Provide(NewCollector),
)
