package migration

import (
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	"github.com/smallbiznis/revroute/internal/config"
	entitydomain "github.com/smallbiznis/revroute/internal/entity/domain"
	pausedomain "github.com/smallbiznis/revroute/internal/pause/domain"
	paymentdomain "github.com/smallbiznis/revroute/internal/payment/domain"
	positiondomain "github.com/smallbiznis/revroute/internal/position/domain"
	subscriptiondomain "github.com/smallbiznis/revroute/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql are for local development only. AutoMigrate
			// keeps them usable without maintaining per-dialect SQL.
			return conn.AutoMigrate(
				&entitydomain.BusinessEntity{},
				&paymentdomain.Payment{},
				&subscriptiondomain.Subscription{},
				&pausedomain.PauseWindow{},
				&pausedomain.BatchRun{},
				&auditdomain.AuditLog{},
				&positiondomain.RevenueSnapshot{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
