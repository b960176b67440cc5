package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revroute/internal/pause/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, window *domain.PauseWindow) error {
	if window == nil {
		return domain.ErrInvalidWindow
	}
	return db.WithContext(ctx).Create(window).Error
}

func (r *repo) GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PauseWindow, error) {
	var window domain.PauseWindow
	err := db.WithContext(ctx).First(&window, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWindowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &window, nil
}

func (r *repo) HasOpenWindow(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, start, end time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.PauseWindow{}).
		Where("subscription_id = ?", subscriptionID).
		Where("status IN ?", []domain.PauseWindowStatus{
			domain.PauseWindowStatusScheduled,
			domain.PauseWindowStatusActive,
		}).
		Where("start_date < ? AND end_date > ?", end.UTC(), start.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListDueToStart(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]domain.PauseWindow, error) {
	var windows []domain.PauseWindow
	stmt := db.WithContext(ctx).
		Where("status = ?", domain.PauseWindowStatusScheduled).
		Where("start_date <= ? AND end_date > ?", today.UTC(), today.UTC()).
		Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&windows).Error; err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *repo) ListDueToEnd(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]domain.PauseWindow, error) {
	var windows []domain.PauseWindow
	stmt := db.WithContext(ctx).
		Where("status IN ?", []domain.PauseWindowStatus{
			domain.PauseWindowStatusScheduled,
			domain.PauseWindowStatusActive,
		}).
		Where("end_date <= ?", today.UTC()).
		Where("credit_applied_at IS NULL").
		Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&windows).Error; err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *repo) MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	result := db.WithContext(ctx).Model(&domain.PauseWindow{}).
		Where("id = ? AND status = ?", id, domain.PauseWindowStatusScheduled).
		Updates(map[string]any{
			"status":     domain.PauseWindowStatusActive,
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStaleTransition
	}
	return nil
}

func (r *repo) ApplyCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, application domain.CreditApplication) error {
	result := db.WithContext(ctx).Model(&domain.PauseWindow{}).
		Where("id = ?", id).
		Where("status IN ?", []domain.PauseWindowStatus{
			domain.PauseWindowStatusScheduled,
			domain.PauseWindowStatusActive,
		}).
		Where("credit_applied_at IS NULL").
		Updates(map[string]any{
			"status":              domain.PauseWindowStatusCreditApplied,
			"paused_days":         application.PausedDays,
			"credit_amount":       application.CreditAmount,
			"credit_applied_at":   application.AppliedAt.UTC(),
			"external_credit_ref": application.ExternalCreditRef,
			"updated_at":          application.AppliedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.AlreadyAppliedError{WindowID: id}
	}
	return nil
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (domain.PauseWindowStatus, error) {
	window, err := r.GetByID(ctx, db, id)
	if err != nil {
		return "", err
	}
	prior := window.Status

	result := db.WithContext(ctx).Model(&domain.PauseWindow{}).
		Where("id = ? AND status = ?", id, prior).
		Where("status IN ?", []domain.PauseWindowStatus{
			domain.PauseWindowStatusScheduled,
			domain.PauseWindowStatusActive,
		}).
		Updates(map[string]any{
			"status":     domain.PauseWindowStatusCancelled,
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", domain.ErrStaleTransition
	}
	return prior, nil
}

func (r *repo) InsertBatchRun(ctx context.Context, db *gorm.DB, run *domain.BatchRun) error {
	if run == nil {
		return nil
	}
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) LastBatchRun(ctx context.Context, db *gorm.DB) (*domain.BatchRun, error) {
	var run domain.BatchRun
	err := db.WithContext(ctx).Order("started_at desc").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
