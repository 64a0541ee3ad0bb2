package period

import (
	"testing"
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
	"github.com/stretchr/testify/require"
)

func ms(y int, m time.Month, d, hh, mm int) int64 {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC).UnixMilli()
}

func TestComputeExpiry_MonthlyKeepsDayOfMonth(t *testing.T) {
	got := ComputeExpiry(ms(2024, time.March, 15, 10, 30), types.PeriodMonthly)
	require.Equal(t, ms(2024, time.April, 15, 10, 30), got)
}

func TestComputeExpiry_MonthlyClampsToLastDay(t *testing.T) {
	cases := []struct {
		from, want int64
	}{
		{ms(2024, time.January, 31, 8, 0), ms(2024, time.February, 29, 8, 0)},
		{ms(2023, time.January, 31, 8, 0), ms(2023, time.February, 28, 8, 0)},
		{ms(2024, time.March, 31, 8, 0), ms(2024, time.April, 30, 8, 0)},
		{ms(2024, time.December, 31, 23, 59), ms(2025, time.January, 31, 23, 59)},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ComputeExpiry(c.from, types.PeriodMonthly))
	}
}

func TestComputeExpiry_YearlyHandlesLeapDay(t *testing.T) {
	require.Equal(t, ms(2025, time.February, 28, 12, 0), ComputeExpiry(ms(2024, time.February, 29, 12, 0), types.PeriodYearly))
	require.Equal(t, ms(2025, time.June, 1, 12, 0), ComputeExpiry(ms(2024, time.June, 1, 12, 0), types.PeriodYearly))
}

func TestComputeExpiry_WeeklyAddsSevenDays(t *testing.T) {
	require.Equal(t, ms(2024, time.March, 5, 0, 0), ComputeExpiry(ms(2024, time.February, 27, 0, 0), types.PeriodWeekly))
}

func TestComputeExpiry_UnknownPeriodIsMonthly(t *testing.T) {
	from := ms(2024, time.May, 10, 0, 0)
	require.Equal(t, ComputeExpiry(from, types.PeriodMonthly), ComputeExpiry(from, types.PeriodNone))
	require.Equal(t, ComputeExpiry(from, types.PeriodMonthly), ComputeExpiry(from, ""))
}

func TestComputeExpiry_EveryDayOfLeapYearLandsOnSameOrLastDay(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	for d := 0; d < 366; d++ {
		from := start.AddDate(0, 0, d)
		got := time.UnixMilli(ComputeExpiry(from.UnixMilli(), types.PeriodMonthly)).UTC()
		wantMonth := from.Month()%12 + 1
		require.Equal(t, wantMonth, got.Month(), from.String())
		last := time.Date(got.Year(), got.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		require.Equal(t, min(from.Day(), last), got.Day(), from.String())
		require.Equal(t, 9, got.Hour())
	}
}

func TestComputeExpiryIn_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2024-01-31 20:00 UTC is 2024-02-01 05:00 in UTC+9.
	from := ms(2024, time.January, 31, 20, 0)
	got := ComputeExpiryIn(loc, from, types.PeriodMonthly)
	require.Equal(t, time.Date(2024, time.March, 1, 5, 0, 0, 0, loc).UnixMilli(), got)
}

func TestComputeSavingsPercent(t *testing.T) {
	require.InDelta(t, 25.0, ComputeSavingsPercent(10_000_000, 30_000_000, types.PeriodMonthly), 1e-9)
	require.InDelta(t, 50.0, ComputeSavingsPercent(10_000_000, 260_000_000, types.PeriodYearly), 1e-9)
	require.Equal(t, 0.0, ComputeSavingsPercent(10_000_000, 45_000_000, types.PeriodMonthly))
	require.Equal(t, 0.0, ComputeSavingsPercent(10_000_000, 10_000_000, types.PeriodWeekly))
	require.Equal(t, 0.0, ComputeSavingsPercent(0, 10_000_000, types.PeriodMonthly))
}

func TestAddPeriods_AnchorsOnStart(t *testing.T) {
	start := ms(2024, time.January, 31, 0, 0)
	require.Equal(t, ms(2024, time.February, 29, 0, 0), AddPeriods(start, types.PeriodMonthly, 1))
	require.Equal(t, ms(2024, time.March, 31, 0, 0), AddPeriods(start, types.PeriodMonthly, 2))
	require.Equal(t, ms(2024, time.February, 14, 0, 0), AddPeriods(start, types.PeriodWeekly, 2))
	require.Equal(t, ms(2026, time.January, 31, 0, 0), AddPeriods(start, types.PeriodYearly, 2))
}

func TestCurrentPeriodStart(t *testing.T) {
	start := ms(2024, time.January, 31, 0, 0)
	// third monthly period: Mar 31 -> Apr 30
	require.Equal(t, ms(2024, time.March, 31, 0, 0), CurrentPeriodStart(start, ms(2024, time.April, 30, 0, 0), types.PeriodMonthly))
	// first period
	require.Equal(t, start, CurrentPeriodStart(start, ms(2024, time.February, 29, 0, 0), types.PeriodMonthly))
	// expiry before start falls back to the start
	require.Equal(t, start, CurrentPeriodStart(start, start-1, types.PeriodMonthly))
}
