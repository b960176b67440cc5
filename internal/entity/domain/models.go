// Package domain contains persistence models for business entities.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntityStatus represents lifecycle states for a business entity.
type EntityStatus string

const (
	EntityStatusActive   EntityStatus = "ACTIVE"
	EntityStatusInactive EntityStatus = "INACTIVE"
)

// BusinessEntity is one of the legal entities revenue can be attributed to.
// VATThreshold is the annual registration threshold for the fiscal window
// [VATYearStart, VATYearEnd). CurrentRevenue is a cached snapshot written by
// the position calculator and is never authoritative over the payment ledger.
type BusinessEntity struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code              string          `gorm:"type:text;not null;uniqueIndex" json:"code"`
	DisplayName       string          `gorm:"type:text;not null" json:"display_name"`
	BillingAccountRef string          `gorm:"type:text;not null" json:"billing_account_ref"`
	VATThreshold      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"vat_threshold"`
	VATYearStart      time.Time       `gorm:"not null" json:"vat_year_start"`
	VATYearEnd        time.Time       `gorm:"not null" json:"vat_year_end"`
	CurrentRevenue    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"current_revenue"`
	Status            EntityStatus    `gorm:"type:text;not null;default:ACTIVE" json:"status"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BusinessEntity) TableName() string { return "business_entities" }

var (
	ErrEntityNotFound = errors.New("entity_not_found")
	ErrInvalidEntity  = errors.New("invalid_entity")
)

type Repository interface {
	ListByStatus(ctx context.Context, db *gorm.DB, status EntityStatus) ([]BusinessEntity, error)
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BusinessEntity, error)
	GetByCode(ctx context.Context, db *gorm.DB, code string) (*BusinessEntity, error)
	Insert(ctx context.Context, db *gorm.DB, entity *BusinessEntity) error
	UpdateCachedRevenue(ctx context.Context, db *gorm.DB, id snowflake.ID, revenue decimal.Decimal, at time.Time) error
}

type Service interface {
	ListActive(ctx context.Context) ([]BusinessEntity, error)
	GetByID(ctx context.Context, id snowflake.ID) (*BusinessEntity, error)
	Create(ctx context.Context, req CreateEntityRequest) (*BusinessEntity, error)
}

type CreateEntityRequest struct {
	DisplayName       string          `json:"display_name"`
	BillingAccountRef string          `json:"billing_account_ref"`
	VATThreshold      decimal.Decimal `json:"vat_threshold"`
	VATYearStart      time.Time       `json:"vat_year_start"`
	VATYearEnd        time.Time       `json:"vat_year_end"`
}
