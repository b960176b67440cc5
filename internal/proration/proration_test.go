package proration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateRegularMonthly(t *testing.T) {
	// 31-day January period at 100/month, paused for 10 days.
	result, err := Calculate(Input{
		PauseStart:        date(2024, time.January, 10),
		PauseEnd:          date(2024, time.January, 20),
		SubscriptionStart: date(2024, time.January, 1),
		MonthlyPrice:      decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.TotalDays != 10 {
		t.Fatalf("TotalDays = %d, want 10", result.TotalDays)
	}
	if got := result.TotalCredit.StringFixed(2); got != "32.26" {
		t.Fatalf("TotalCredit = %s, want 32.26", got)
	}
	if result.TotalCreditMinorUnits != 3226 {
		t.Fatalf("TotalCreditMinorUnits = %d, want 3226", result.TotalCreditMinorUnits)
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("Breakdown length = %d, want 1", len(result.Breakdown))
	}
	if result.Breakdown[0].PeriodDays != 31 {
		t.Fatalf("PeriodDays = %d, want 31", result.Breakdown[0].PeriodDays)
	}
}

func TestCalculateProratedFirstMonth(t *testing.T) {
	// Prorated opener [Jan 15, Feb 1) at 48.39 over 17 days, then 90/month.
	// Pause [Jan 20, Feb 10) overlaps 12 days of the opener and 9 days of
	// the 29-day February 2024 period.
	firstBilling := date(2024, time.February, 1)
	prorated := decimal.RequireFromString("48.39")

	result, err := Calculate(Input{
		PauseStart:        date(2024, time.January, 20),
		PauseEnd:          date(2024, time.February, 10),
		SubscriptionStart: date(2024, time.January, 15),
		FirstBillingDate:  &firstBilling,
		ProratedAmount:    &prorated,
		MonthlyPrice:      decimal.NewFromInt(90),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.TotalDays != 21 {
		t.Fatalf("TotalDays = %d, want 21", result.TotalDays)
	}
	if got := result.TotalCredit.StringFixed(2); got != "62.09" {
		t.Fatalf("TotalCredit = %s, want 62.09", got)
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("Breakdown length = %d, want 2", len(result.Breakdown))
	}

	opener := result.Breakdown[0]
	if opener.OverlapDays != 12 || opener.Credit.StringFixed(2) != "34.16" {
		t.Fatalf("opener = %d days / %s, want 12 / 34.16", opener.OverlapDays, opener.Credit.StringFixed(2))
	}
	february := result.Breakdown[1]
	if february.PeriodDays != 29 {
		t.Fatalf("february PeriodDays = %d, want 29 (leap year)", february.PeriodDays)
	}
	if february.OverlapDays != 9 || february.Credit.StringFixed(2) != "27.93" {
		t.Fatalf("february = %d days / %s, want 9 / 27.93", february.OverlapDays, february.Credit.StringFixed(2))
	}
}

func TestCalculatePauseSpanningManyMonths(t *testing.T) {
	result, err := Calculate(Input{
		PauseStart:        date(2024, time.March, 1),
		PauseEnd:          date(2024, time.June, 1),
		SubscriptionStart: date(2024, time.January, 1),
		MonthlyPrice:      decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// March, April and May are fully covered, one credit of 50 each.
	if got := result.TotalCredit.StringFixed(2); got != "150.00" {
		t.Fatalf("TotalCredit = %s, want 150.00", got)
	}
	if result.TotalDays != 31+30+31 {
		t.Fatalf("TotalDays = %d, want 92", result.TotalDays)
	}
}

func TestCalculateAdditivity(t *testing.T) {
	result, err := Calculate(Input{
		PauseStart:        date(2024, time.January, 25),
		PauseEnd:          date(2024, time.March, 5),
		SubscriptionStart: date(2024, time.January, 1),
		MonthlyPrice:      decimal.RequireFromString("79.99"),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	sum := decimal.Zero
	days := 0
	for _, period := range result.Breakdown {
		sum = sum.Add(period.Credit)
		days += period.OverlapDays
	}
	if !sum.Equal(result.TotalCredit) {
		t.Fatalf("sum of breakdown = %s, total = %s", sum, result.TotalCredit)
	}
	if days != result.TotalDays {
		t.Fatalf("sum of overlap days = %d, total = %d", days, result.TotalDays)
	}
}

func TestCalculateZeroAndInvertedWindows(t *testing.T) {
	base := Input{
		SubscriptionStart: date(2024, time.January, 1),
		MonthlyPrice:      decimal.NewFromInt(100),
	}

	for name, in := range map[string]Input{
		"zero length": {
			PauseStart:        date(2024, time.February, 1),
			PauseEnd:          date(2024, time.February, 1),
			SubscriptionStart: base.SubscriptionStart,
			MonthlyPrice:      base.MonthlyPrice,
		},
		"inverted": {
			PauseStart:        date(2024, time.February, 10),
			PauseEnd:          date(2024, time.February, 1),
			SubscriptionStart: base.SubscriptionStart,
			MonthlyPrice:      base.MonthlyPrice,
		},
		"ends before subscription": {
			PauseStart:        date(2023, time.December, 1),
			PauseEnd:          date(2023, time.December, 15),
			SubscriptionStart: base.SubscriptionStart,
			MonthlyPrice:      base.MonthlyPrice,
		},
	} {
		result, err := Calculate(in)
		if err != nil {
			t.Fatalf("%s: Calculate: %v", name, err)
		}
		if result.TotalDays != 0 || !result.TotalCredit.IsZero() || result.TotalCreditMinorUnits != 0 {
			t.Fatalf("%s: result = %d days / %s, want zero", name, result.TotalDays, result.TotalCredit)
		}
	}
}

func TestCalculateTimeOfDayIgnored(t *testing.T) {
	withTime, err := Calculate(Input{
		PauseStart:        time.Date(2024, time.January, 10, 23, 45, 0, 0, time.UTC),
		PauseEnd:          time.Date(2024, time.January, 20, 1, 30, 0, 0, time.UTC),
		SubscriptionStart: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		MonthlyPrice:      decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if withTime.TotalDays != 10 || withTime.TotalCredit.StringFixed(2) != "32.26" {
		t.Fatalf("result = %d days / %s, want 10 / 32.26", withTime.TotalDays, withTime.TotalCredit.StringFixed(2))
	}
}

func TestCalculateZeroMonthlyPrice(t *testing.T) {
	result, err := Calculate(Input{
		PauseStart:        date(2024, time.January, 10),
		PauseEnd:          date(2024, time.January, 20),
		SubscriptionStart: date(2024, time.January, 1),
		MonthlyPrice:      decimal.Zero,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !result.TotalCredit.IsZero() {
		t.Fatalf("TotalCredit = %s, want 0", result.TotalCredit)
	}
	if result.TotalDays != 10 {
		t.Fatalf("TotalDays = %d, want 10", result.TotalDays)
	}
}

func TestCalculateErrors(t *testing.T) {
	firstBilling := date(2024, time.January, 15)
	prorated := decimal.NewFromInt(10)

	cases := map[string]struct {
		in   Input
		want error
	}{
		"missing dates": {
			in:   Input{MonthlyPrice: decimal.NewFromInt(100)},
			want: ErrMissingDates,
		},
		"negative price": {
			in: Input{
				PauseStart:        date(2024, time.January, 10),
				PauseEnd:          date(2024, time.January, 20),
				SubscriptionStart: date(2024, time.January, 1),
				MonthlyPrice:      decimal.NewFromInt(-1),
			},
			want: ErrInvalidMonthlyPrice,
		},
		"prorated amount without first billing date": {
			in: Input{
				PauseStart:        date(2024, time.January, 10),
				PauseEnd:          date(2024, time.January, 20),
				SubscriptionStart: date(2024, time.January, 1),
				ProratedAmount:    &prorated,
				MonthlyPrice:      decimal.NewFromInt(100),
			},
			want: ErrInvalidFirstPeriod,
		},
		"first billing date not after start": {
			in: Input{
				PauseStart:        date(2024, time.January, 10),
				PauseEnd:          date(2024, time.January, 20),
				SubscriptionStart: date(2024, time.January, 15),
				FirstBillingDate:  &firstBilling,
				ProratedAmount:    &prorated,
				MonthlyPrice:      decimal.NewFromInt(100),
			},
			want: ErrInvalidFirstPeriod,
		},
	}

	for name, tc := range cases {
		if _, err := Calculate(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", name, err, tc.want)
		}
	}
}
