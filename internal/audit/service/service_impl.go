package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revroute/internal/audit/domain"
	"github.com/smallbiznis/revroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 50

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
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" || strings.TrimSpace(entry.OperationID) == "" {
		return domain.ErrInvalidAction
	}

	performedBy := strings.TrimSpace(entry.PerformedBy)
	if performedBy == "" {
		performedBy = "system"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	row := domain.AuditLog{
		ID:             s.genID.Generate(),
		SubscriptionID: entry.SubscriptionID,
		Action:         action,
		PerformedBy:    performedBy,
		Reason:         strings.TrimSpace(entry.Reason),
		OperationID:    strings.TrimSpace(entry.OperationID),
		Metadata:       datatypes.JSONMap(payload),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("audit operation already recorded",
				zap.String("operation_id", row.OperationID),
			)
			return domain.ErrDuplicateOperation
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = defaultListLimit
	}

	entries, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Entries: entries}
	if len(entries) > req.Limit {
		resp.Entries = entries[:req.Limit]
		last := resp.Entries[len(resp.Entries)-1].ID
		resp.NextCursor = &last
	}
	return resp, nil
}
