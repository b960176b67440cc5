// Package domain contains persistence models for member subscriptions.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusPendingPayment    SubscriptionStatus = "PENDING_PAYMENT"
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused            SubscriptionStatus = "PAUSED"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled         SubscriptionStatus = "CANCELLED"
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
)

// Subscription captures a member's billing agreement. RoutedEntityID and
// BillingAccountRef are resolved once at routing time and never re-derived.
type Subscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID             snowflake.ID      `gorm:"not null;index" json:"user_id"`
	PlanKey            string             `gorm:"type:text;not null" json:"plan_key"`
	MonthlyPrice       decimal.Decimal    `gorm:"type:numeric(18,2);not null" json:"monthly_price"`
	RoutedEntityID     snowflake.ID       `gorm:"not null;index" json:"routed_entity_id"`
	BillingAccountRef  string             `gorm:"type:text;not null" json:"billing_account_ref"`
	BillingRef         string             `gorm:"type:text;not null" json:"billing_ref"`
	CustomerRef        string             `gorm:"type:text;not null" json:"customer_ref"`
	Status             SubscriptionStatus `gorm:"type:text;not null;index" json:"status"`
	StartAt            time.Time          `gorm:"not null" json:"start_at"`
	FirstBillingDate   *time.Time         `gorm:"" json:"first_billing_date,omitempty"`
	CurrentPeriodStart *time.Time         `gorm:"" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `gorm:"" json:"current_period_end,omitempty"`
	NextBillingDate    *time.Time         `gorm:"" json:"next_billing_date,omitempty"`
	CancelAtPeriodEnd  bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidTransition    = errors.New("invalid_subscription_transition")
	ErrAlreadyRouted        = errors.New("subscription_already_routed")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	// TransitionStatus updates the status only when the row still holds one of
	// the expected prior statuses. Returns ErrInvalidTransition when no row
	// matched.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []SubscriptionStatus, to SubscriptionStatus, at time.Time) error
}
