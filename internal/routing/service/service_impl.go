package service

import (
	"context"

	"github.com/smallbiznis/revroute/internal/clock"
	"github.com/smallbiznis/revroute/internal/config"
	positiondomain "github.com/smallbiznis/revroute/internal/position/domain"
	"github.com/smallbiznis/revroute/internal/routing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	PositionSvc positiondomain.Service
	Routing     *config.RoutingConfigHolder
	Clock       clock.Clock
}

type Service struct {
	log         *zap.Logger
	positionSvc positiondomain.Service
	routing     *config.RoutingConfigHolder
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("routing.service"),
		positionSvc: p.PositionSvc,
		routing:     p.Routing,
		clock:       p.Clock,
	}
}

// RoutePayment computes fresh positions and selects exactly one entity, or
// fails with *domain.ThresholdExceededError. It performs no writes; the
// caller persists the routed entity on the payment/subscription.
func (s *Service) RoutePayment(ctx context.Context, candidate domain.Candidate) (domain.Decision, error) {
	positions, err := s.positionSvc.CalculatePositions(ctx, s.clock.Now())
	if err != nil {
		return domain.Decision{}, err
	}

	decision, err := selectEntity(positions, candidate, s.routing.Current())
	if err != nil {
		s.log.Warn("routing failed",
			zap.String("plan_key", candidate.PlanKey),
			zap.String("amount", candidate.Amount.StringFixed(2)),
			zap.Error(err),
		)
		return domain.Decision{}, err
	}

	s.log.Info("payment routed",
		zap.String("entity_id", decision.EntityID.String()),
		zap.String("entity_code", decision.EntityCode),
		zap.String("reason", decision.Reason),
		zap.String("amount", candidate.Amount.StringFixed(2)),
	)
	return decision, nil
}
