package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revroute/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/revroute/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("ledger.service"),
	}
}

func (s *Service) SumConfirmedRevenue(ctx context.Context, entityID snowflake.ID, windowStart, windowEnd time.Time) (decimal.Decimal, error) {
	if !windowEnd.After(windowStart) {
		return decimal.Zero, domain.ErrInvalidWindow
	}

	var row struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total
		 FROM payments
		 WHERE routed_entity_id = ?
		   AND status IN (?, ?, ?)
		   AND COALESCE(processed_at, created_at) >= ?
		   AND COALESCE(processed_at, created_at) < ?`,
		entityID,
		paymentdomain.PaymentStatusConfirmed,
		paymentdomain.PaymentStatusRefunded,
		paymentdomain.PaymentStatusCredited,
		windowStart.UTC(),
		windowEnd.UTC(),
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
