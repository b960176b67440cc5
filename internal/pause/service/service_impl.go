package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	billingdomain "github.com/smallbiznis/revroute/internal/billing/domain"
	"github.com/smallbiznis/revroute/internal/clock"
	"github.com/smallbiznis/revroute/internal/pause/domain"
	subscriptiondomain "github.com/smallbiznis/revroute/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	SubRepo   subscriptiondomain.Repository
	AuditSvc  auditdomain.Service
	Collector billingdomain.Collector
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	subRepo   subscriptiondomain.Repository
	auditSvc  auditdomain.Service
	collector billingdomain.Collector
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pause.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		subRepo:   p.SubRepo,
		auditSvc:  p.AuditSvc,
		collector: p.Collector,
	}
}

func (s *Service) Schedule(ctx context.Context, req domain.ScheduleRequest) (*domain.PauseWindow, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrInvalidWindow
	}

	if _, err := s.subRepo.GetByID(ctx, s.db, req.SubscriptionID); err != nil {
		return nil, err
	}

	overlapping, err := s.repo.HasOpenWindow(ctx, s.db, req.SubscriptionID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, domain.ErrOverlappingWindow
	}

	now := s.clock.Now()
	window := &domain.PauseWindow{
		ID:             s.genID.Generate(),
		SubscriptionID: req.SubscriptionID,
		StartDate:      req.StartDate.UTC(),
		EndDate:        req.EndDate.UTC(),
		Status:         domain.PauseWindowStatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, window); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, window.SubscriptionID, "pause_window.scheduled", req.PerformedBy, req.Reason,
		fmt.Sprintf("pause_schedule_%s_%d", window.ID, now.Unix()),
		map[string]any{
			"window_id":  window.ID.String(),
			"start_date": window.StartDate,
			"end_date":   window.EndDate,
		})
	return window, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, performedBy, reason string) error {
	window, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	prior, err := s.repo.Cancel(ctx, s.db, id, now)
	if err != nil {
		return err
	}

	// An active window already suspended collection; undo it and reactivate
	// the subscription.
	if prior == domain.PauseWindowStatusActive {
		sub, err := s.subRepo.GetByID(ctx, s.db, window.SubscriptionID)
		if err != nil {
			return err
		}
		if err := s.collector.ResumeCollection(ctx, sub.BillingRef); err != nil && !errors.Is(err, billingdomain.ErrAlreadyInState) {
			return err
		}
		err = s.subRepo.TransitionStatus(ctx, s.db, sub.ID,
			[]subscriptiondomain.SubscriptionStatus{subscriptiondomain.SubscriptionStatusPaused},
			subscriptiondomain.SubscriptionStatusActive, now)
		if err != nil && !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
			return err
		}
	}

	s.recordAudit(ctx, window.SubscriptionID, "pause_window.cancelled", performedBy, reason,
		fmt.Sprintf("pause_cancel_%s_%d", id, now.Unix()),
		map[string]any{"window_id": id.String(), "prior_status": string(prior)})
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.PauseWindow, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

func (s *Service) LastBatchRun(ctx context.Context) (*domain.BatchRun, error) {
	return s.repo.LastBatchRun(ctx, s.db)
}

func (s *Service) recordAudit(ctx context.Context, subscriptionID snowflake.ID, action, performedBy, reason, operationID string, metadata map[string]any) {
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		SubscriptionID: &subscriptionID,
		Action:         action,
		PerformedBy:    performedBy,
		Reason:         reason,
		OperationID:    operationID,
		Metadata:       metadata,
	})
	if err != nil && !errors.Is(err, auditdomain.ErrDuplicateOperation) {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
