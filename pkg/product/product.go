package product

import (
	"strings"
	"unicode"

	"github.com/fatflowers/entitlements/pkg/types"
)

var tierTokens = map[string]types.Tier{
	"lite": types.TierLite,
	"plus": types.TierPlus,
	"pro":  types.TierPro,
}

var periodTokens = map[string]types.Period{
	"weekly":   types.PeriodWeekly,
	"week":     types.PeriodWeekly,
	"p1w":      types.PeriodWeekly,
	"monthly":  types.PeriodMonthly,
	"month":    types.PeriodMonthly,
	"p1m":      types.PeriodMonthly,
	"yearly":   types.PeriodYearly,
	"year":     types.PeriodYearly,
	"annual":   types.PeriodYearly,
	"annually": types.PeriodYearly,
	"p1y":      types.PeriodYearly,
}

func tokens(id string) []string {
	return strings.FieldsFunc(strings.ToLower(id), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scan(id string) (types.Tier, types.Period) {
	tier, per := types.TierNone, types.PeriodNone
	for _, tok := range tokens(id) {
		if t, ok := tierTokens[tok]; ok && tier == types.TierNone {
			tier = t
		}
		if p, ok := periodTokens[tok]; ok && per == types.PeriodNone {
			per = p
		}
	}
	return tier, per
}

// Parse maps a store product id such as "com.app.plus_monthly" to its tier and period.
// It never fails: no tier token yields none, no period token yields monthly.
func Parse(id string) (types.Tier, types.Period) {
	tier, per := scan(id)
	if per == types.PeriodNone {
		per = types.PeriodMonthly
	}
	return tier, per
}

// ParseWithBasePlan handles Google Play subscriptions where the period (and sometimes the tier)
// lives on the base plan id.
func ParseWithBasePlan(productID, basePlanID string) (types.Tier, types.Period) {
	tier, per := scan(productID)
	if basePlanID != "" {
		bt, bp := scan(basePlanID)
		if tier == types.TierNone {
			tier = bt
		}
		if per == types.PeriodNone {
			per = bp
		}
	}
	if per == types.PeriodNone {
		per = types.PeriodMonthly
	}
	return tier, per
}

// Format is the inverse of Parse for catalog ids built as <prefix><tier>_<period>.
func Format(prefix string, tier types.Tier, per types.Period) string {
	if per == types.PeriodNone || per == "" {
		per = types.PeriodMonthly
	}
	return prefix + string(tier) + "_" + string(per)
}

// TierPriority orders tiers for tie-breaking only.
func TierPriority(tier types.Tier) int {
	switch tier {
	case types.TierPro:
		return 3
	case types.TierPlus:
		return 2
	case types.TierLite:
		return 1
	}
	return 0
}
