package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revroute/internal/config"
	entitydomain "github.com/smallbiznis/revroute/internal/entity/domain"
	ledgerdomain "github.com/smallbiznis/revroute/internal/ledger/domain"
	"github.com/smallbiznis/revroute/internal/position/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	EntityRepo entitydomain.Repository
	LedgerSvc  ledgerdomain.Service
	Routing    *config.RoutingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	entityRepo entitydomain.Repository
	ledgerSvc  ledgerdomain.Service
	routing    *config.RoutingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("position.service"),
		genID:      p.GenID,
		entityRepo: p.EntityRepo,
		ledgerSvc:  p.LedgerSvc,
		routing:    p.Routing,
	}
}

func (s *Service) CalculatePositions(ctx context.Context, asOf time.Time) ([]domain.Position, error) {
	asOf = asOf.UTC()
	entities, err := s.entityRepo.ListByStatus(ctx, s.db, entitydomain.EntityStatusActive)
	if err != nil {
		return nil, err
	}

	tiers := s.routing.Current().RiskTiers
	positions := make([]domain.Position, 0, len(entities))
	for _, entity := range entities {
		if !entity.VATThreshold.IsPositive() {
			// Misconfigured threshold: excluded from selection, never treated
			// as infinite headroom.
			s.log.Warn("entity excluded: non-positive VAT threshold",
				zap.String("entity_id", entity.ID.String()),
				zap.String("code", entity.Code),
			)
			continue
		}

		position, err := s.calculate(ctx, entity, asOf, tiers)
		if err != nil {
			return nil, err
		}
		if err := s.persistSnapshot(ctx, position); err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].EntityID < positions[j].EntityID
	})
	return positions, nil
}

func (s *Service) calculate(ctx context.Context, entity entitydomain.BusinessEntity, asOf time.Time, tiers []config.RiskTier) (domain.Position, error) {
	currentRevenue := decimal.Zero
	if asOf.After(entity.VATYearStart) {
		windowEnd := asOf
		if windowEnd.After(entity.VATYearEnd) {
			windowEnd = entity.VATYearEnd
		}
		var err error
		currentRevenue, err = s.ledgerSvc.SumConfirmedRevenue(ctx, entity.ID, entity.VATYearStart, windowEnd)
		if err != nil {
			return domain.Position{}, err
		}
	}

	monthsElapsed := fractionalMonths(entity.VATYearStart, asOf)
	if monthsElapsed < 1 {
		monthsElapsed = 1
	}
	monthsRemaining := fractionalMonths(asOf, entity.VATYearEnd)

	monthlyAverage := currentRevenue.Div(decimal.NewFromFloat(monthsElapsed))
	projected := currentRevenue.Add(monthlyAverage.Mul(decimal.NewFromFloat(monthsRemaining)))

	utilization := currentRevenue.Div(entity.VATThreshold)
	projectedUtilization := projected.Div(entity.VATThreshold)

	risk := classifyRisk(utilization, projectedUtilization, tiers)

	return domain.Position{
		EntityID:          entity.ID,
		EntityCode:        entity.Code,
		DisplayName:       entity.DisplayName,
		BillingAccountRef: entity.BillingAccountRef,
		VATThreshold:      entity.VATThreshold,
		CurrentRevenue:    currentRevenue,
		Headroom:          entity.VATThreshold.Sub(currentRevenue),
		MonthlyAverage:    monthlyAverage.Round(2),
		ProjectedYearEnd:  projected.Round(2),
		Utilization:       utilization.Round(6),
		RiskLevel:         risk,
		AsOf:              asOf,
	}, nil
}

// classifyRisk picks the tier with the highest qualifying lower bound. The
// top tier additionally qualifies on the projected year-end utilization, so
// an entity trending over threshold is flagged before it gets there.
func classifyRisk(utilization, projectedUtilization decimal.Decimal, tiers []config.RiskTier) domain.RiskLevel {
	sorted := make([]config.RiskTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinUtilization > sorted[j].MinUtilization
	})
	if len(sorted) == 0 {
		return domain.RiskLevelLow
	}

	top := sorted[0]
	effective := utilization
	if projectedUtilization.GreaterThan(effective) && projectedUtilization.GreaterThanOrEqual(decimal.NewFromFloat(top.MinUtilization)) {
		return domain.RiskLevel(top.Level)
	}
	for _, tier := range sorted {
		if effective.GreaterThanOrEqual(decimal.NewFromFloat(tier.MinUtilization)) {
			return domain.RiskLevel(tier.Level)
		}
	}
	return domain.RiskLevel(sorted[len(sorted)-1].Level)
}

func (s *Service) persistSnapshot(ctx context.Context, position domain.Position) error {
	now := time.Now().UTC()
	snapshot := domain.RevenueSnapshot{
		ID:               s.genID.Generate(),
		EntityID:         position.EntityID,
		CurrentRevenue:   position.CurrentRevenue,
		Headroom:         position.Headroom,
		MonthlyAverage:   position.MonthlyAverage,
		ProjectedYearEnd: position.ProjectedYearEnd,
		Utilization:      position.Utilization,
		RiskLevel:        position.RiskLevel,
		AsOf:             position.AsOf,
		CreatedAt:        now,
	}
	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		return err
	}
	return s.entityRepo.UpdateCachedRevenue(ctx, s.db, position.EntityID, position.CurrentRevenue, now)
}

func (s *Service) ListSnapshots(ctx context.Context, entityID snowflake.ID, limit int) ([]domain.RevenueSnapshot, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var snapshots []domain.RevenueSnapshot
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("as_of desc, id desc").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
