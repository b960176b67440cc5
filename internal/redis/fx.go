package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revroute/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewClient connects to redis when an address is configured; otherwise it
// returns nil and callers fall back to their structural guards.
func NewClient(cfg config.Config, log *zap.Logger) *goredis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unreachable, run locking disabled", zap.Error(err))
	}
	return client
}

func registerHooks(lc fx.Lifecycle, client *goredis.Client) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
}

var Module = fx.Module("redis",
	fx.Provide(NewClient),
	fx.Invoke(registerHooks),
)
