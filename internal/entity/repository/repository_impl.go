package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revroute/internal/entity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status domain.EntityStatus) ([]domain.BusinessEntity, error) {
	var entities []domain.BusinessEntity
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("id asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *repo) GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BusinessEntity, error) {
	var entity domain.BusinessEntity
	err := db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEntityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repo) GetByCode(ctx context.Context, db *gorm.DB, code string) (*domain.BusinessEntity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEntityNotFound
	}
	var entity domain.BusinessEntity
	err := db.WithContext(ctx).First(&entity, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEntityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entity *domain.BusinessEntity) error {
	if entity == nil {
		return domain.ErrInvalidEntity
	}
	return db.WithContext(ctx).Create(entity).Error
}

func (r *repo) UpdateCachedRevenue(ctx context.Context, db *gorm.DB, id snowflake.ID, revenue decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.BusinessEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_revenue": revenue,
			"updated_at":      at.UTC(),
		}).Error
}
