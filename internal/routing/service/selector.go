package service

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revroute/internal/config"
	positiondomain "github.com/smallbiznis/revroute/internal/position/domain"
	"github.com/smallbiznis/revroute/internal/routing/domain"
)

// selectEntity is the pure routing decision over freshly computed positions.
// An entity qualifies when headroom - amount >= safetyBuffer. Preferred
// entities for the plan win in configured order; otherwise the qualifying
// entity with the greatest headroom wins, ties broken by lowest entity id.
func selectEntity(positions []positiondomain.Position, candidate domain.Candidate, cfg config.RoutingConfig) (domain.Decision, error) {
	if candidate.Amount.IsNegative() {
		return domain.Decision{}, domain.ErrInvalidCandidate
	}
	if len(positions) == 0 {
		return domain.Decision{}, domain.ErrNoEntitiesAvailable
	}

	type scored struct {
		position positiondomain.Position
		margin   decimal.Decimal // headroom - amount - buffer
	}

	scoredPositions := make([]scored, 0, len(positions))
	for _, position := range positions {
		buffer := bufferFor(position.VATThreshold, cfg.SafetyBuffer)
		margin := position.Headroom.Sub(candidate.Amount).Sub(buffer)
		scoredPositions = append(scoredPositions, scored{position: position, margin: margin})
	}

	qualifying := make([]scored, 0, len(scoredPositions))
	for _, sp := range scoredPositions {
		if sp.margin.GreaterThanOrEqual(decimal.Zero) {
			qualifying = append(qualifying, sp)
		}
	}

	if len(qualifying) == 0 {
		closest := scoredPositions[0]
		for _, sp := range scoredPositions[1:] {
			if sp.margin.GreaterThan(closest.margin) {
				closest = sp
			}
		}
		return domain.Decision{}, &domain.ThresholdExceededError{
			ClosestEntityID:   closest.position.EntityID,
			ClosestEntityCode: closest.position.EntityCode,
			Shortfall:         closest.margin.Neg(),
		}
	}

	for _, code := range cfg.PreferredEntities(candidate.PlanKey) {
		for _, sp := range qualifying {
			if strings.EqualFold(sp.position.EntityCode, code) {
				return decisionFor(sp.position, domain.ReasonPreferredEntity, domain.ConfidenceHigh), nil
			}
		}
	}

	best := qualifying[0]
	for _, sp := range qualifying[1:] {
		switch {
		case sp.position.Headroom.GreaterThan(best.position.Headroom):
			best = sp
		case sp.position.Headroom.Equal(best.position.Headroom) && sp.position.EntityID < best.position.EntityID:
			best = sp
		}
	}
	return decisionFor(best.position, domain.ReasonMaxHeadroom, domain.ConfidenceNormal), nil
}

// bufferFor resolves the safety buffer for one entity: the larger of the
// absolute amount and the percentage of that entity's threshold.
func bufferFor(threshold decimal.Decimal, buffer config.SafetyBuffer) decimal.Decimal {
	absolute := decimal.NewFromFloat(buffer.Amount)
	if buffer.Percent <= 0 {
		return absolute
	}
	relative := threshold.Mul(decimal.NewFromFloat(buffer.Percent)).Div(decimal.NewFromInt(100))
	if relative.GreaterThan(absolute) {
		return relative
	}
	return absolute
}

func decisionFor(position positiondomain.Position, reason string, confidence domain.Confidence) domain.Decision {
	return domain.Decision{
		EntityID:          position.EntityID,
		EntityCode:        position.EntityCode,
		BillingAccountRef: position.BillingAccountRef,
		Headroom:          position.Headroom,
		Confidence:        confidence,
		Reason:            reason,
	}
}
