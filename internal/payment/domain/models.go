// Package domain contains persistence models for payments.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents lifecycle states for a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCredited  PaymentStatus = "CREDITED"
	PaymentStatusVoided    PaymentStatus = "VOIDED"
)

// Payment is a single charge (positive amount) or refund/credit (negative
// amount). RoutedEntityID is set once at routing time and is the single
// source of truth for which entity owns the revenue.
type Payment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID    `gorm:"not null;index" json:"user_id"`
	SubscriptionID *snowflake.ID   `gorm:"index" json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency       string          `gorm:"type:text;not null;default:GBP" json:"currency"`
	Status         PaymentStatus   `gorm:"type:text;not null;index" json:"status"`
	RoutedEntityID snowflake.ID    `gorm:"not null;index" json:"routed_entity_id"`
	ProcessedAt    *time.Time      `gorm:"index" json:"processed_at,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var (
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvalidPayment  = errors.New("invalid_payment")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FirstConfirmedBySubscription returns the earliest CONFIRMED payment for
	// the subscription, or ErrPaymentNotFound when none exists.
	FirstConfirmedBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*Payment, error)
}
