// Package domain defines the read-only revenue ledger contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service reads confirmed revenue from the payment ledger. It performs no
// writes and is safe to call repeatedly and concurrently.
type Service interface {
	// SumConfirmedRevenue sums payment amounts attributed to entityID whose
	// effective timestamp (processed_at, falling back to created_at) lies in
	// [windowStart, windowEnd). Negative rows (refunds, credits) are ordinary
	// terms in the sum.
	SumConfirmedRevenue(ctx context.Context, entityID snowflake.ID, windowStart, windowEnd time.Time) (decimal.Decimal, error)
}

var ErrInvalidWindow = errors.New("invalid_ledger_window")
