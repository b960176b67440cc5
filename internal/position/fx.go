package position

import (
	"github.com/smallbiznis/revroute/internal/position/service"
	"go.uber.org/fx"
)

var Module = fx.Module("position.service",
	fx.Provide(service.New),
)
