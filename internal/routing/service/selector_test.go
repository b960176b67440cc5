package service

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revroute/internal/config"
	positiondomain "github.com/smallbiznis/revroute/internal/position/domain"
	"github.com/smallbiznis/revroute/internal/routing/domain"
)

func position(id int64, code string, threshold, revenue int64) positiondomain.Position {
	th := decimal.NewFromInt(threshold)
	rev := decimal.NewFromInt(revenue)
	return positiondomain.Position{
		EntityID:          snowflake.ID(id),
		EntityCode:        code,
		BillingAccountRef: "acct_" + code,
		VATThreshold:      th,
		CurrentRevenue:    rev,
		Headroom:          th.Sub(rev),
	}
}

func bufferOnly(amount float64) config.RoutingConfig {
	return config.RoutingConfig{SafetyBuffer: config.SafetyBuffer{Amount: amount}}
}

func TestSelectEntityMaxHeadroom(t *testing.T) {
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 80000),
		position(2, "beta", 90000, 40000),
		position(3, "gamma", 90000, 60000),
	}

	decision, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(100)}, bufferOnly(500))
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	if decision.EntityCode != "beta" {
		t.Fatalf("EntityCode = %s, want beta", decision.EntityCode)
	}
	if decision.Reason != domain.ReasonMaxHeadroom || decision.Confidence != domain.ConfidenceNormal {
		t.Fatalf("reason/confidence = %s/%s", decision.Reason, decision.Confidence)
	}
	if decision.BillingAccountRef != "acct_beta" {
		t.Fatalf("BillingAccountRef = %s", decision.BillingAccountRef)
	}
}

func TestSelectEntityBufferExcludes(t *testing.T) {
	// Headroom 100, amount 100: raw headroom is consumed exactly, so any
	// positive buffer pushes the entity out.
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 89900),
	}

	_, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(100)}, bufferOnly(100))

	var thresholdErr *domain.ThresholdExceededError
	if !errors.As(err, &thresholdErr) {
		t.Fatalf("err = %v, want ThresholdExceededError", err)
	}
	if thresholdErr.ClosestEntityCode != "alpha" {
		t.Fatalf("ClosestEntityCode = %s, want alpha", thresholdErr.ClosestEntityCode)
	}
	if got := thresholdErr.Shortfall.StringFixed(2); got != "100.00" {
		t.Fatalf("Shortfall = %s, want 100.00", got)
	}
}

func TestSelectEntityReportsClosest(t *testing.T) {
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 89950), // margin 50-200-200 = -350
		position(2, "beta", 90000, 89700),  // margin 300-200-200 = -100
	}

	_, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(200)}, bufferOnly(200))

	var thresholdErr *domain.ThresholdExceededError
	if !errors.As(err, &thresholdErr) {
		t.Fatalf("err = %v, want ThresholdExceededError", err)
	}
	if thresholdErr.ClosestEntityCode != "beta" {
		t.Fatalf("ClosestEntityCode = %s, want beta (least negative margin)", thresholdErr.ClosestEntityCode)
	}
}

func TestSelectEntityPreferredWins(t *testing.T) {
	// gamma has the most headroom but the plan prefers alpha.
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 50000),
		position(2, "gamma", 90000, 10000),
	}
	cfg := config.RoutingConfig{
		SafetyBuffer: config.SafetyBuffer{Amount: 500},
		Plans: []config.PlanPreference{
			{PlanKey: "annual", PreferredEntities: []string{"ALPHA"}},
		},
	}

	decision, err := selectEntity(positions, domain.Candidate{
		Amount:  decimal.NewFromInt(100),
		PlanKey: "annual",
	}, cfg)
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	if decision.EntityCode != "alpha" {
		t.Fatalf("EntityCode = %s, want alpha", decision.EntityCode)
	}
	if decision.Reason != domain.ReasonPreferredEntity || decision.Confidence != domain.ConfidenceHigh {
		t.Fatalf("reason/confidence = %s/%s", decision.Reason, decision.Confidence)
	}
}

func TestSelectEntityPreferredMustQualify(t *testing.T) {
	// The preferred entity is over threshold, so the fallback applies.
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 89990),
		position(2, "beta", 90000, 10000),
	}
	cfg := config.RoutingConfig{
		SafetyBuffer: config.SafetyBuffer{Amount: 500},
		Plans: []config.PlanPreference{
			{PlanKey: "annual", PreferredEntities: []string{"alpha"}},
		},
	}

	decision, err := selectEntity(positions, domain.Candidate{
		Amount:  decimal.NewFromInt(100),
		PlanKey: "annual",
	}, cfg)
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	if decision.EntityCode != "beta" {
		t.Fatalf("EntityCode = %s, want beta", decision.EntityCode)
	}
}

func TestSelectEntityTieBreakLowestID(t *testing.T) {
	positions := []positiondomain.Position{
		position(7, "late", 90000, 40000),
		position(3, "early", 90000, 40000),
	}

	decision, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(100)}, bufferOnly(500))
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	if decision.EntityCode != "early" {
		t.Fatalf("EntityCode = %s, want early (lowest id on tie)", decision.EntityCode)
	}
}

func TestSelectEntityPercentBuffer(t *testing.T) {
	// 1% of a 90000 threshold is 900, larger than the absolute 500.
	positions := []positiondomain.Position{
		position(1, "alpha", 90000, 89200), // headroom 800 < 900 buffer
		position(2, "beta", 90000, 88000),  // headroom 2000
	}
	cfg := config.RoutingConfig{SafetyBuffer: config.SafetyBuffer{Amount: 500, Percent: 1}}

	decision, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(100)}, cfg)
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	if decision.EntityCode != "beta" {
		t.Fatalf("EntityCode = %s, want beta", decision.EntityCode)
	}
}

func TestSelectEntityInvalidInputs(t *testing.T) {
	if _, err := selectEntity(nil, domain.Candidate{Amount: decimal.NewFromInt(10)}, bufferOnly(0)); !errors.Is(err, domain.ErrNoEntitiesAvailable) {
		t.Fatalf("err = %v, want ErrNoEntitiesAvailable", err)
	}

	positions := []positiondomain.Position{position(1, "alpha", 90000, 0)}
	if _, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(-1)}, bufferOnly(0)); !errors.Is(err, domain.ErrInvalidCandidate) {
		t.Fatalf("err = %v, want ErrInvalidCandidate", err)
	}
}

func TestSelectEntityDeterministic(t *testing.T) {
	positions := []positiondomain.Position{
		position(5, "alpha", 90000, 61000),
		position(2, "beta", 90000, 61000),
		position(9, "gamma", 90000, 70000),
	}

	first, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(250)}, bufferOnly(500))
	if err != nil {
		t.Fatalf("selectEntity: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := selectEntity(positions, domain.Candidate{Amount: decimal.NewFromInt(250)}, bufferOnly(500))
		if err != nil {
			t.Fatalf("selectEntity: %v", err)
		}
		if again.EntityID != first.EntityID {
			t.Fatalf("run %d selected %d, first selected %d", i, again.EntityID, first.EntityID)
		}
	}
}
