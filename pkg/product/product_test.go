package product

import (
	"testing"

	"github.com/fatflowers/entitlements/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		id     string
		tier   types.Tier
		period types.Period
	}{
		{"com.app.plus_monthly", types.TierPlus, types.PeriodMonthly},
		{"com.app.pro_yearly", types.TierPro, types.PeriodYearly},
		{"com.app.lite.weekly", types.TierLite, types.PeriodWeekly},
		{"PRO-Annual", types.TierPro, types.PeriodYearly},
		{"com.app.plus", types.TierPlus, types.PeriodMonthly},
		{"com.app.coins_100", types.TierNone, types.PeriodMonthly},
		{"", types.TierNone, types.PeriodMonthly},
		{"com.app.product_plus_1_week", types.TierPlus, types.PeriodWeekly},
		{"%%%", types.TierNone, types.PeriodMonthly},
	}
	for _, c := range cases {
		tier, per := Parse(c.id)
		require.Equal(t, c.tier, tier, c.id)
		require.Equal(t, c.period, per, c.id)
	}
}

func TestParse_DoesNotMatchSubstrings(t *testing.T) {
	tier, _ := Parse("com.app.professional_monthly")
	require.Equal(t, types.TierNone, tier)
}

func TestParseWithBasePlan(t *testing.T) {
	tier, per := ParseWithBasePlan("plus", "plus-p1y")
	require.Equal(t, types.TierPlus, tier)
	require.Equal(t, types.PeriodYearly, per)

	tier, per = ParseWithBasePlan("subscription", "pro-weekly")
	require.Equal(t, types.TierPro, tier)
	require.Equal(t, types.PeriodWeekly, per)

	tier, per = ParseWithBasePlan("com.app.lite_monthly", "lite-p1y")
	require.Equal(t, types.TierLite, tier)
	require.Equal(t, types.PeriodMonthly, per)
}

func TestFormat_RoundTrip(t *testing.T) {
	for _, tier := range types.Tiers {
		for _, per := range []types.Period{types.PeriodWeekly, types.PeriodMonthly, types.PeriodYearly} {
			id := Format("com.app.", tier, per)
			gotTier, gotPer := Parse(id)
			require.Equal(t, tier, gotTier, id)
			require.Equal(t, per, gotPer, id)
		}
	}
	require.Equal(t, "com.app.plus_monthly", Format("com.app.", types.TierPlus, types.PeriodNone))
}

func TestTierPriority(t *testing.T) {
	require.Greater(t, TierPriority(types.TierPro), TierPriority(types.TierPlus))
	require.Greater(t, TierPriority(types.TierPlus), TierPriority(types.TierLite))
	require.Greater(t, TierPriority(types.TierLite), TierPriority(types.TierNone))
	require.Equal(t, 0, TierPriority(types.Tier("gold")))
}
