// Package domain defines the contract with the external billing
// collaborator. The engine treats it as a black box returning
// success / failure / already-in-state and never assumes settlement beyond
// the call's return value.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyInState signals the remote side is already suspended/resumed.
	// Callers tolerate it as success on resume.
	ErrAlreadyInState = errors.New("billing_already_in_state")
	ErrInvalidConfig  = errors.New("billing_invalid_config")
)

// ExternalServiceError wraps a failed collaborator call. Batch processing
// records it per window and retries on the next run.
type ExternalServiceError struct {
	Op  string
	Ref string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("billing %s failed for %s: %v", e.Op, e.Ref, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Collector is the narrow surface the pause lifecycle needs.
type Collector interface {
	// SuspendCollection stops charging subscriptionRef until resumeAt.
	SuspendCollection(ctx context.Context, subscriptionRef string, resumeAt time.Time) error
	// ResumeCollection restarts charging. Returns ErrAlreadyInState when the
	// subscription was not suspended.
	ResumeCollection(ctx context.Context, subscriptionRef string) error
	// CreateNegativeInvoiceLine books a credit against the customer's next
	// invoice. idempotencyKey makes retried instructions safe.
	CreateNegativeInvoiceLine(ctx context.Context, customerRef string, amountMinorUnits int64, description, idempotencyKey string) error
}

// CollectorFactory builds a Collector for one provider.
type CollectorFactory interface {
	Provider() string
	NewCollector(cfg AdapterConfig) (Collector, error)
}

type AdapterConfig struct {
	BaseURL string
	APIKey  string
}
