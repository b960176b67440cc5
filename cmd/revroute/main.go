package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revroute/internal/audit"
	"github.com/smallbiznis/revroute/internal/billing"
	"github.com/smallbiznis/revroute/internal/clock"
	"github.com/smallbiznis/revroute/internal/config"
	"github.com/smallbiznis/revroute/internal/entity"
	"github.com/smallbiznis/revroute/internal/ledger"
	"github.com/smallbiznis/revroute/internal/logger"
	"github.com/smallbiznis/revroute/internal/migration"
	"github.com/smallbiznis/revroute/internal/observability"
	"github.com/smallbiznis/revroute/internal/pause"
	"github.com/smallbiznis/revroute/internal/payment"
	"github.com/smallbiznis/revroute/internal/position"
	"github.com/smallbiznis/revroute/internal/redis"
	"github.com/smallbiznis/revroute/internal/routing"
	"github.com/smallbiznis/revroute/internal/scheduler"
	"github.com/smallbiznis/revroute/internal/server"
	"github.com/smallbiznis/revroute/internal/subscription"
	"github.com/smallbiznis/revroute/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		redis.Module,
		clock.Module,
		migration.Module,

		// Domain
		entity.Module,
		payment.Module,
		subscription.Module,
		ledger.Module,
		position.Module,
		routing.Module,
		billing.Module,
		audit.Module,
		pause.Module,

		// Surfaces
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
