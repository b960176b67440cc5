package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/revroute/internal/entity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entity.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ListActive(ctx context.Context) ([]domain.BusinessEntity, error) {
	return s.repo.ListByStatus(ctx, s.db, domain.EntityStatusActive)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.BusinessEntity, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

func (s *Service) Create(ctx context.Context, req domain.CreateEntityRequest) (*domain.BusinessEntity, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" || strings.TrimSpace(req.BillingAccountRef) == "" {
		return nil, domain.ErrInvalidEntity
	}
	if !req.VATYearEnd.After(req.VATYearStart) {
		return nil, domain.ErrInvalidEntity
	}

	now := time.Now().UTC()
	entity := &domain.BusinessEntity{
		ID:                s.genID.Generate(),
		Code:              slug.Make(displayName),
		DisplayName:       displayName,
		BillingAccountRef: strings.TrimSpace(req.BillingAccountRef),
		VATThreshold:      req.VATThreshold,
		VATYearStart:      req.VATYearStart.UTC(),
		VATYearEnd:        req.VATYearEnd.UTC(),
		Status:            domain.EntityStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}
	s.log.Info("entity created",
		zap.String("entity_id", entity.ID.String()),
		zap.String("code", entity.Code),
	)
	return entity, nil
}
