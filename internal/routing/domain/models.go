// Package domain defines the entity routing contract. Routing decides which
// legal entity a new payment's revenue is attributed to; mis-routing has
// regulatory consequences, so failure is explicit and never a silent
// fallback.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceNormal Confidence = "normal"
)

const (
	ReasonPreferredEntity = "preferred_entity"
	ReasonMaxHeadroom     = "max_headroom"
)

// Candidate is a payment or subscription seeking an entity attribution.
type Candidate struct {
	Amount  decimal.Decimal `json:"amount"`
	PlanKey string          `json:"plan_key"`
}

// Decision is the routing outcome. The caller persists RoutedEntityID and
// BillingAccountRef on the payment/subscription; the decision itself writes
// nothing.
type Decision struct {
	EntityID          snowflake.ID    `json:"entity_id"`
	EntityCode        string          `json:"entity_code"`
	BillingAccountRef string          `json:"billing_account_ref"`
	Headroom          decimal.Decimal `json:"headroom"`
	Confidence        Confidence      `json:"confidence"`
	Reason            string          `json:"reason"`
}

// ThresholdExceededError reports that no entity can absorb the candidate
// amount without eating into its safety buffer. It names the
// closest-but-failing entity and the shortfall so an operator can act.
type ThresholdExceededError struct {
	ClosestEntityID   snowflake.ID
	ClosestEntityCode string
	Shortfall         decimal.Decimal
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("threshold_exceeded: no entity qualifies; closest %s short by %s",
		e.ClosestEntityCode, e.Shortfall.StringFixed(2))
}

var (
	ErrInvalidCandidate    = errors.New("invalid_candidate")
	ErrNoEntitiesAvailable = errors.New("no_entities_available")
)

type Service interface {
	RoutePayment(ctx context.Context, candidate Candidate) (Decision, error)
}
