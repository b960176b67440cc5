package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/revroute/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if req.SubscriptionID != nil {
		stmt = stmt.Where("subscription_id = ?", *req.SubscriptionID)
	}
	if action := strings.TrimSpace(req.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if req.Cursor != nil {
		stmt = stmt.Where("id < ?", *req.Cursor)
	}

	stmt = stmt.Order("id desc")
	if req.Limit > 0 {
		stmt = stmt.Limit(req.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
