// Package domain defines derived revenue positions and their snapshots.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RiskLevel classifies how close an entity is to its VAT threshold.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// Position is an entity's revenue standing at a point in time, recomputed
// from the ledger on demand. Persisted snapshots are a point-in-time cache
// and never authoritative for routing decisions.
type Position struct {
	EntityID          snowflake.ID    `json:"entity_id"`
	EntityCode        string          `json:"entity_code"`
	DisplayName       string          `json:"display_name"`
	BillingAccountRef string          `json:"billing_account_ref"`
	VATThreshold      decimal.Decimal `json:"vat_threshold"`
	CurrentRevenue    decimal.Decimal `json:"current_revenue"`
	Headroom          decimal.Decimal `json:"headroom"`
	MonthlyAverage    decimal.Decimal `json:"monthly_average"`
	ProjectedYearEnd  decimal.Decimal `json:"projected_year_end"`
	Utilization       decimal.Decimal `json:"utilization"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	AsOf              time.Time       `json:"as_of"`
}

// RevenueSnapshot is the persisted observability record of one computed
// position.
type RevenueSnapshot struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntityID         snowflake.ID    `gorm:"not null;index" json:"entity_id"`
	CurrentRevenue   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"current_revenue"`
	Headroom         decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"headroom"`
	MonthlyAverage   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"monthly_average"`
	ProjectedYearEnd decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"projected_year_end"`
	Utilization      decimal.Decimal `gorm:"type:numeric(9,6);not null" json:"utilization"`
	RiskLevel        RiskLevel       `gorm:"type:text;not null" json:"risk_level"`
	AsOf             time.Time       `gorm:"not null;index" json:"as_of"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RevenueSnapshot) TableName() string { return "revenue_snapshots" }

type Service interface {
	// CalculatePositions recomputes positions for all ACTIVE entities from the
	// ledger as of asOf, persisting one snapshot per entity. Entities with a
	// non-positive threshold are excluded as misconfigured.
	CalculatePositions(ctx context.Context, asOf time.Time) ([]Position, error)
	ListSnapshots(ctx context.Context, entityID snowflake.ID, limit int) ([]RevenueSnapshot, error)
}
