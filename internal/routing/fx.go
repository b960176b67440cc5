package routing

import (
	"github.com/smallbiznis/revroute/internal/routing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("routing.service",
	fx.Provide(service.New),
)
