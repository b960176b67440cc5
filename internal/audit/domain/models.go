// Package domain contains the append-only audit trail models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one append-only entry. OperationID is unique per attempt; a
// duplicate insert means the operation already ran and is reported as
// ErrDuplicateOperation instead of a second row.
type AuditLog struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	SubscriptionID *snowflake.ID     `gorm:"index" json:"subscription_id,omitempty"`
	Action         string            `gorm:"type:text;not null;index" json:"action"`
	PerformedBy    string            `gorm:"type:text;not null" json:"performed_by"`
	Reason         string            `gorm:"type:text" json:"reason"`
	OperationID    string            `gorm:"type:text;not null;uniqueIndex" json:"operation_id"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

var (
	ErrInvalidAction      = errors.New("invalid_action")
	ErrDuplicateOperation = errors.New("duplicate_operation")
)

type ListRequest struct {
	SubscriptionID *snowflake.ID
	Action         string
	Limit          int
	// Cursor is the id of the last entry from the previous page.
	Cursor *snowflake.ID
}

type ListResponse struct {
	Entries    []AuditLog    `json:"entries"`
	NextCursor *snowflake.ID `json:"next_cursor,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]AuditLog, error)
}

type Entry struct {
	SubscriptionID *snowflake.ID
	Action         string
	PerformedBy    string
	Reason         string
	OperationID    string
	Metadata       map[string]any
}

type Service interface {
	// Record appends one entry. A repeated OperationID returns
	// ErrDuplicateOperation without writing.
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}
