package service

import (
	"math"
	"testing"
	"time"
)

func TestFractionalMonthsWholeMonths(t *testing.T) {
	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	if got := fractionalMonths(from, to); got != 3 {
		t.Fatalf("fractionalMonths = %v, want 3", got)
	}
}

func TestFractionalMonthsPartialTail(t *testing.T) {
	// One whole month (Apr 1 - May 1) plus 15 of May's 31 days.
	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.May, 16, 0, 0, 0, 0, time.UTC)

	want := 1 + 15.0/31.0
	if got := fractionalMonths(from, to); math.Abs(got-want) > 1e-9 {
		t.Fatalf("fractionalMonths = %v, want %v", got, want)
	}
}

func TestFractionalMonthsNotAfter(t *testing.T) {
	at := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	if got := fractionalMonths(at, at); got != 0 {
		t.Fatalf("fractionalMonths(at, at) = %v, want 0", got)
	}
	if got := fractionalMonths(at, at.AddDate(0, -1, 0)); got != 0 {
		t.Fatalf("fractionalMonths backwards = %v, want 0", got)
	}
}

func TestFractionalMonthsFullFiscalYear(t *testing.T) {
	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	if got := fractionalMonths(from, to); got != 12 {
		t.Fatalf("fractionalMonths = %v, want 12", got)
	}
}
