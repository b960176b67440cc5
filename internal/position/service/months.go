package service

import "time"

// fractionalMonths measures the span between from and to in calendar months,
// day-accurate: one unit per whole calendar month stepped from `from`, plus
// remainingDays / lengthOfThePartialMonth for the tail. Returns 0 when to is
// not after from.
func fractionalMonths(from, to time.Time) float64 {
	from = from.UTC()
	to = to.UTC()
	if !to.After(from) {
		return 0
	}

	months := 0
	cursor := from
	for {
		next := cursor.AddDate(0, 1, 0)
		if next.After(to) {
			break
		}
		months++
		cursor = next
	}

	spanDays := cursor.AddDate(0, 1, 0).Sub(cursor).Hours() / 24
	if spanDays <= 0 {
		return float64(months)
	}
	remainingDays := to.Sub(cursor).Hours() / 24
	return float64(months) + remainingDays/spanDays
}
