package period

import (
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
)

// ComputeExpiry adds one billing period to the purchase instant using calendar arithmetic in UTC.
// An unknown or empty period is treated as monthly.
func ComputeExpiry(purchaseMillis int64, p types.Period) int64 {
	return ComputeExpiryIn(time.UTC, purchaseMillis, p)
}

func ComputeExpiryIn(loc *time.Location, purchaseMillis int64, p types.Period) int64 {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(purchaseMillis).In(loc)
	switch p {
	case types.PeriodWeekly:
		return t.AddDate(0, 0, 7).UnixMilli()
	case types.PeriodYearly:
		return addMonthsClamped(t, 12).UnixMilli()
	default:
		return addMonthsClamped(t, 1).UnixMilli()
	}
}

// addMonthsClamped keeps the day of month, or the last day when the target month is shorter.
// time.AddDate would normalize Jan 31 + 1 month into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	target := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AddPeriods adds n whole periods anchored at start so day-of-month clamping never drifts
// across consecutive renewals.
func AddPeriods(startMillis int64, p types.Period, n int) int64 {
	t := time.UnixMilli(startMillis).UTC()
	switch p {
	case types.PeriodWeekly:
		return t.AddDate(0, 0, 7*n).UnixMilli()
	case types.PeriodYearly:
		return addMonthsClamped(t, 12*n).UnixMilli()
	default:
		return addMonthsClamped(t, n).UnixMilli()
	}
}

const maxRenewals = 10000

// CurrentPeriodStart returns the start of the billing period that ends at expiry, for
// platforms that report only the original start and the current expiry.
func CurrentPeriodStart(startMillis, expiryMillis int64, p types.Period) int64 {
	current := startMillis
	for n := 1; n < maxRenewals; n++ {
		next := AddPeriods(startMillis, p, n)
		if next >= expiryMillis {
			return current
		}
		current = next
	}
	return current
}

// Multiplier is how many weekly periods make up p for the savings baseline.
func Multiplier(p types.Period) int64 {
	switch p {
	case types.PeriodMonthly:
		return 4
	case types.PeriodYearly:
		return 52
	}
	return 1
}

// ComputeSavingsPercent compares a candidate price against weekly×N. Weekly always reports 0.
func ComputeSavingsPercent(weeklyMicros, candidateMicros int64, p types.Period) float64 {
	if p == types.PeriodWeekly || weeklyMicros <= 0 {
		return 0
	}
	expected := float64(weeklyMicros * Multiplier(p))
	savings := (expected - float64(candidateMicros)) / expected * 100
	if savings < 0 {
		return 0
	}
	return savings
}
