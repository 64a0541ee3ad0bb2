package reconcile

import (
	"sort"
	"time"

	"github.com/fatflowers/entitlements/pkg/period"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Override is a locally known purchase outcome the ledger may not reflect yet.
type Override struct {
	Record types.SubscriptionRecord
	SetAt  time.Time
}

func (o *Override) trusted(now time.Time, window time.Duration) bool {
	return o != nil && now.Sub(o.SetAt) < window
}

type MergeInput struct {
	Entitlements []types.Entitlement
	// Remote is the remote record, nil when the user has none.
	Remote      *types.SubscriptionRecord
	Override    *Override
	TrustWindow time.Duration
	Now         time.Time
}

type candidate struct {
	ent  types.Entitlement
	tier types.Tier
	per  types.Period
}

func eligible(ents []types.Entitlement) []candidate {
	out := make([]candidate, 0, len(ents))
	for _, e := range ents {
		if !e.ProductType.Renewable() || !e.Verified {
			continue
		}
		tier, per := product.ParseWithBasePlan(e.ProductID, e.BasePlanID)
		if tier == types.TierNone {
			continue
		}
		out = append(out, candidate{ent: e, tier: tier, per: per})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ent.PurchaseInstant.Equal(b.ent.PurchaseInstant) {
			return a.ent.PurchaseInstant.After(b.ent.PurchaseInstant)
		}
		if pa, pb := product.TierPriority(a.tier), product.TierPriority(b.tier); pa != pb {
			return pa > pb
		}
		return a.ent.TransactionID < b.ent.TransactionID
	})
	return out
}

// ActiveRecord builds the record an entitlement grants on its own.
func ActiveRecord(e types.Entitlement) (types.SubscriptionRecord, bool) {
	tier, per := product.ParseWithBasePlan(e.ProductID, e.BasePlanID)
	if tier == types.TierNone {
		return types.Inactive(), false
	}
	return activeRecord(candidate{ent: e, tier: tier, per: per}), true
}

func activeRecord(c candidate) types.SubscriptionRecord {
	start := c.ent.PurchaseInstant.UnixMilli()
	return types.SubscriptionRecord{
		IsActive:         true,
		Tier:             c.tier,
		Period:           c.per,
		Status:           types.SubscriptionStatusActive,
		StartTimeMillis:  start,
		ExpiryTimeMillis: period.ComputeExpiry(start, c.per),
		WillAutoRenew:    true,
		ProductID:        c.ent.ProductID,
		PurchaseToken:    c.ent.PurchaseToken,
		BasePlanID:       c.ent.BasePlanID,
	}
}

// remoteSoftState reports whether the remote record carries a grace or hold window
// still open at now.
func remoteSoftState(r *types.SubscriptionRecord, nowMillis int64) bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case types.SubscriptionStatusGracePeriod:
		return nowMillis < r.GracePeriodEndMillis
	case types.SubscriptionStatusAccountHold:
		return nowMillis < r.AccountHoldEndMillis
	}
	return false
}

// Merge computes the authoritative record. The ledger decides presence and terms; the
// remote record only contributes grace and hold windows.
func Merge(in MergeInput) types.SubscriptionRecord {
	nowMillis := in.Now.UnixMilli()
	cands := eligible(in.Entitlements)

	if len(cands) == 0 {
		switch {
		case in.Override.trusted(in.Now, in.TrustWindow):
			return in.Override.Record.Normalize(in.Now)
		case remoteSoftState(in.Remote, nowMillis):
			return in.Remote.Normalize(in.Now)
		}
		return types.Inactive()
	}

	rec := activeRecord(cands[0])
	// an upgrade confirmed locally but not yet by the ledger
	if o := in.Override; o.trusted(in.Now, in.TrustWindow) && o.Record.Status == types.SubscriptionStatusActive &&
		o.Record.StartTimeMillis > rec.StartTimeMillis {
		rec = o.Record
	}
	if r := in.Remote; r != nil {
		if r.GracePeriodEndMillis > rec.ExpiryTimeMillis {
			rec.GracePeriodEndMillis = r.GracePeriodEndMillis
		}
		if r.AccountHoldEndMillis > rec.ExpiryTimeMillis {
			rec.AccountHoldEndMillis = r.AccountHoldEndMillis
		}
	}
	return rec.Normalize(in.Now)
}
