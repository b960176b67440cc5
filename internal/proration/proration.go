// Package proration computes day-accurate billing credits for paused
// subscriptions. It is pure: no clock, no persistence, no I/O.
package proration

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingDates        = errors.New("proration_missing_dates")
	ErrInvalidFirstPeriod  = errors.New("proration_invalid_first_period")
	ErrInvalidMonthlyPrice = errors.New("proration_invalid_monthly_price")
)

// Input describes a pause window against a subscription's billing timeline.
// When the member's very first charge was itself a partial month, the
// timeline opens with a prorated sub-period [SubscriptionStart,
// FirstBillingDate) paid at ProratedAmount; regular calendar-month periods
// at MonthlyPrice follow. When ProratedAmount is nil the whole timeline runs
// at the monthly rate from SubscriptionStart.
type Input struct {
	PauseStart        time.Time
	PauseEnd          time.Time
	SubscriptionStart time.Time
	FirstBillingDate  *time.Time
	ProratedAmount    *decimal.Decimal
	MonthlyPrice      decimal.Decimal
}

// PeriodCredit is one billing sub-period's contribution to the credit.
type PeriodCredit struct {
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	PeriodDays  int             `json:"period_days"`
	OverlapDays int             `json:"overlap_days"`
	Credit      decimal.Decimal `json:"credit"`
}

type Result struct {
	TotalDays             int             `json:"total_days"`
	TotalCredit           decimal.Decimal `json:"total_credit"`
	TotalCreditMinorUnits int64           `json:"total_credit_minor_units"`
	Breakdown             []PeriodCredit  `json:"breakdown"`
}

// Calculate walks the billing timeline one sub-period at a time, crediting
// round(dailyRate * overlapDays, 2) per period and summing after rounding,
// which matches per-line invoicing behavior. All intervals are half-open.
// A pause that ends on or before it starts yields a zero result.
func Calculate(in Input) (Result, error) {
	if in.PauseStart.IsZero() || in.PauseEnd.IsZero() || in.SubscriptionStart.IsZero() {
		return Result{}, ErrMissingDates
	}

	pauseStart := dateOf(in.PauseStart)
	pauseEnd := dateOf(in.PauseEnd)
	subscriptionStart := dateOf(in.SubscriptionStart)

	zero := Result{TotalCredit: decimal.Zero}
	if !pauseEnd.After(pauseStart) {
		return zero, nil
	}
	if !pauseEnd.After(subscriptionStart) {
		return zero, nil
	}
	if in.MonthlyPrice.IsNegative() {
		return Result{}, ErrInvalidMonthlyPrice
	}

	var firstBilling *time.Time
	if in.ProratedAmount != nil {
		if in.FirstBillingDate == nil {
			return Result{}, ErrInvalidFirstPeriod
		}
		fb := dateOf(*in.FirstBillingDate)
		if !fb.After(subscriptionStart) {
			return Result{}, ErrInvalidFirstPeriod
		}
		firstBilling = &fb
	}

	result := Result{TotalCredit: decimal.Zero}
	cursor := subscriptionStart

	if firstBilling != nil {
		result = accumulate(result, period(cursor, *firstBilling, *in.ProratedAmount), pauseStart, pauseEnd)
		cursor = *firstBilling
	}

	for cursor.Before(pauseEnd) {
		periodEnd := cursor.AddDate(0, 1, 0)
		result = accumulate(result, period(cursor, periodEnd, in.MonthlyPrice), pauseStart, pauseEnd)
		cursor = periodEnd
	}

	result.TotalCreditMinorUnits = result.TotalCredit.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return result, nil
}

type subPeriod struct {
	start time.Time
	end   time.Time
	paid  decimal.Decimal
}

func period(start, end time.Time, paid decimal.Decimal) subPeriod {
	return subPeriod{start: start, end: end, paid: paid}
}

func accumulate(result Result, p subPeriod, pauseStart, pauseEnd time.Time) Result {
	overlap := overlapDays(p.start, p.end, pauseStart, pauseEnd)
	if overlap <= 0 {
		return result
	}

	lengthDays := daysBetween(p.start, p.end)
	if lengthDays <= 0 {
		return result
	}

	dailyRate := p.paid.Div(decimal.NewFromInt(int64(lengthDays)))
	credit := dailyRate.Mul(decimal.NewFromInt(int64(overlap))).Round(2)

	result.Breakdown = append(result.Breakdown, PeriodCredit{
		PeriodStart: p.start,
		PeriodEnd:   p.end,
		PaidAmount:  p.paid,
		PeriodDays:  lengthDays,
		OverlapDays: overlap,
		Credit:      credit,
	})
	result.TotalDays += overlap
	result.TotalCredit = result.TotalCredit.Add(credit)
	return result
}

// overlapDays returns the length in days of the intersection of the two
// half-open intervals, never negative.
func overlapDays(periodStart, periodEnd, pauseStart, pauseEnd time.Time) int {
	start := periodStart
	if pauseStart.After(start) {
		start = pauseStart
	}
	end := periodEnd
	if pauseEnd.Before(end) {
		end = pauseEnd
	}
	if !end.After(start) {
		return 0
	}
	return daysBetween(start, end)
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// dateOf truncates to a UTC calendar date so day arithmetic ignores
// time-of-day and DST noise.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
