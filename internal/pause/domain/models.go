// Package domain contains pause window models and the lifecycle contracts.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PauseWindowStatus represents lifecycle states for a pause window.
// SCHEDULED -> ACTIVE -> CREDIT_APPLIED is the batch-driven path;
// SCHEDULED or ACTIVE -> CANCELLED is an explicit admin action. Both
// CREDIT_APPLIED and CANCELLED are terminal.
type PauseWindowStatus string

const (
	PauseWindowStatusScheduled     PauseWindowStatus = "SCHEDULED"
	PauseWindowStatusActive        PauseWindowStatus = "ACTIVE"
	PauseWindowStatusCreditApplied PauseWindowStatus = "CREDIT_APPLIED"
	PauseWindowStatusCancelled     PauseWindowStatus = "CANCELLED"
)

// PauseWindow is a scheduled interval [StartDate, EndDate) during which a
// subscription's billing is suspended. CreditAppliedAt is the one-way
// idempotency gate: once non-null the window is never credited again.
type PauseWindow struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	SubscriptionID    snowflake.ID      `gorm:"not null;index" json:"subscription_id"`
	StartDate         time.Time         `gorm:"not null;index" json:"start_date"`
	EndDate           time.Time         `gorm:"not null;index" json:"end_date"`
	Status            PauseWindowStatus `gorm:"type:text;not null;index" json:"status"`
	PausedDays        int               `gorm:"not null;default:0" json:"paused_days"`
	CreditAmount      decimal.Decimal   `gorm:"type:numeric(18,2);not null;default:0" json:"credit_amount"`
	CreditAppliedAt   *time.Time        `gorm:"" json:"credit_applied_at,omitempty"`
	ExternalCreditRef *string           `gorm:"type:text" json:"external_credit_ref,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PauseWindow) TableName() string { return "pause_windows" }

// BatchRun records one coordinator run's summary for the operator surface.
type BatchRun struct {
	ID             string         `gorm:"primaryKey;type:text" json:"id"`
	AsOf           time.Time      `gorm:"not null;index" json:"as_of"`
	Started        int            `gorm:"not null;default:0" json:"started"`
	Ended          int            `gorm:"not null;default:0" json:"ended"`
	CreditsApplied int            `gorm:"not null;default:0" json:"credits_applied"`
	Failed         int            `gorm:"not null;default:0" json:"failed"`
	Skipped        int            `gorm:"not null;default:0" json:"skipped"`
	Errors         datatypes.JSON `gorm:"type:jsonb" json:"errors"`
	StartedAt      time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt     time.Time      `gorm:"not null" json:"finished_at"`
}

// TableName sets the database table name.
func (BatchRun) TableName() string { return "pause_batch_runs" }

// Summary is the structured result of one batch run.
type Summary struct {
	RunID          string    `json:"run_id"`
	AsOf           time.Time `json:"as_of"`
	Started        int       `json:"started"`
	Ended          int       `json:"ended"`
	CreditsApplied int       `json:"credits_applied"`
	Failed         int       `json:"failed"`
	Skipped        int       `json:"skipped"`
	Errors         []string  `json:"errors,omitempty"`
}

var (
	ErrWindowNotFound    = errors.New("pause_window_not_found")
	ErrInvalidWindow     = errors.New("invalid_pause_window")
	ErrOverlappingWindow = errors.New("overlapping_pause_window")
	ErrStaleTransition   = errors.New("stale_pause_window_transition")
	ErrRunInProgress     = errors.New("pause_batch_run_in_progress")
)

// AlreadyAppliedError rejects a second credit application for a window whose
// gate is already closed.
type AlreadyAppliedError struct {
	WindowID snowflake.ID
}

func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("credit already applied for pause window %s", e.WindowID)
}

// CreditApplication is everything ApplyCredit persists in one guarded write.
type CreditApplication struct {
	PausedDays        int
	CreditAmount      decimal.Decimal
	ExternalCreditRef *string
	AppliedAt         time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, window *PauseWindow) error
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PauseWindow, error)
	// HasOpenWindow reports whether the subscription already has a
	// non-terminal window overlapping [start, end).
	HasOpenWindow(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, start, end time.Time) (bool, error)
	// ListDueToStart returns SCHEDULED windows with startDate <= today < endDate.
	ListDueToStart(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]PauseWindow, error)
	// ListDueToEnd returns SCHEDULED or ACTIVE windows with endDate <= today
	// whose credit gate is still open.
	ListDueToEnd(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]PauseWindow, error)
	// MarkActive flips SCHEDULED -> ACTIVE; ErrStaleTransition when the window
	// moved meanwhile.
	MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	// ApplyCredit closes the gate: persists the credit fields, sets
	// credit_applied_at and status CREDIT_APPLIED in one guarded update.
	// Returns *AlreadyAppliedError when the gate was already closed.
	ApplyCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, application CreditApplication) error
	// Cancel flips SCHEDULED or ACTIVE -> CANCELLED and reports the prior
	// status so callers can undo side effects of an active window.
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (PauseWindowStatus, error)
	InsertBatchRun(ctx context.Context, db *gorm.DB, run *BatchRun) error
	LastBatchRun(ctx context.Context, db *gorm.DB) (*BatchRun, error)
}

type ScheduleRequest struct {
	SubscriptionID snowflake.ID `json:"subscription_id"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"`
	PerformedBy    string       `json:"performed_by"`
	Reason         string       `json:"reason"`
}

type Service interface {
	Schedule(ctx context.Context, req ScheduleRequest) (*PauseWindow, error)
	Cancel(ctx context.Context, id snowflake.ID, performedBy, reason string) error
	Get(ctx context.Context, id snowflake.ID) (*PauseWindow, error)
	LastBatchRun(ctx context.Context) (*BatchRun, error)
}
