package pause

import (
	"github.com/smallbiznis/revroute/internal/pause/coordinator"
	"github.com/smallbiznis/revroute/internal/pause/repository"
	"github.com/smallbiznis/revroute/internal/pause/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pause",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(coordinator.New),
)
