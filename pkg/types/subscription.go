package types

import "time"

type Tier string

const (
	TierNone Tier = "none"
	TierLite Tier = "lite"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

var Tiers = []Tier{TierLite, TierPlus, TierPro}

type Period string

const (
	PeriodNone    Period = "none"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

type SubscriptionStatus string

const (
	SubscriptionStatusInactive    SubscriptionStatus = "inactive"
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusAccountHold SubscriptionStatus = "account_hold"
	SubscriptionStatusCanceled    SubscriptionStatus = "canceled"
	SubscriptionStatusExpired     SubscriptionStatus = "expired"
	SubscriptionStatusPending     SubscriptionStatus = "pending"
	SubscriptionStatusPaused      SubscriptionStatus = "paused"
)

// GrantsAccess reports whether the status can carry an active entitlement.
func (s SubscriptionStatus) GrantsAccess() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusGracePeriod, SubscriptionStatusAccountHold:
		return true
	}
	return false
}

// SubscriptionChangeReason names what triggered a reconciliation.
type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonTransaction SubscriptionChangeReason = "transaction"
	SubscriptionChangeReasonRemote      SubscriptionChangeReason = "remote"
	SubscriptionChangeReasonRefresh     SubscriptionChangeReason = "refresh"
	SubscriptionChangeReasonPurchase    SubscriptionChangeReason = "purchase"
)

// SubscriptionRecord is the authoritative entitlement of one user.
// It is replaced wholesale by reconciliation and never patched in place.
type SubscriptionRecord struct {
	IsActive             bool               `json:"is_active"`
	Tier                 Tier               `json:"tier"`
	Period               Period             `json:"period"`
	Status               SubscriptionStatus `json:"status"`
	StartTimeMillis      int64              `json:"start_time_millis"`
	ExpiryTimeMillis     int64              `json:"expiry_time_millis"`
	GracePeriodEndMillis int64              `json:"grace_period_end_millis"`
	AccountHoldEndMillis int64              `json:"account_hold_end_millis"`
	WillAutoRenew        bool               `json:"will_auto_renew"`
	ProductID            string             `json:"product_id,omitempty"`
	PurchaseToken        string             `json:"purchase_token,omitempty"`
	BasePlanID           string             `json:"base_plan_id,omitempty"`
}

// Inactive is the default record of a user without entitlement signals.
func Inactive() SubscriptionRecord {
	return SubscriptionRecord{
		Tier:   TierNone,
		Period: PeriodNone,
		Status: SubscriptionStatusInactive,
	}
}

// windowCovers reports whether expiry or one of the soft windows is still open at now.
func (r *SubscriptionRecord) windowCovers(nowMillis int64) bool {
	if r.ExpiryTimeMillis == 0 || nowMillis < r.ExpiryTimeMillis {
		return true
	}
	return nowMillis < r.GracePeriodEndMillis || nowMillis < r.AccountHoldEndMillis
}

// ActiveAt evaluates access at the given instant without mutating the record.
func (r *SubscriptionRecord) ActiveAt(now time.Time) bool {
	return r.Status.GrantsAccess() && r.windowCovers(now.UnixMilli())
}

// Normalize returns a copy that satisfies the record invariants at now.
func (r SubscriptionRecord) Normalize(now time.Time) SubscriptionRecord {
	ms := now.UnixMilli()
	if r.Tier == "" {
		r.Tier = TierNone
	}
	if r.Period == "" {
		r.Period = PeriodNone
	}
	if r.Status == "" {
		r.Status = SubscriptionStatusInactive
	}

	// grace and hold are mutually exclusive, keep the later one
	if r.GracePeriodEndMillis != 0 && r.AccountHoldEndMillis != 0 {
		if r.GracePeriodEndMillis >= r.AccountHoldEndMillis {
			r.AccountHoldEndMillis = 0
		} else {
			r.GracePeriodEndMillis = 0
		}
	}

	switch {
	case r.Status.GrantsAccess():
		if !r.windowCovers(ms) || r.Tier == TierNone {
			r = expire(r)
			break
		}
		if r.ExpiryTimeMillis != 0 && ms >= r.ExpiryTimeMillis {
			if ms < r.GracePeriodEndMillis {
				r.Status = SubscriptionStatusGracePeriod
			} else {
				r.Status = SubscriptionStatusAccountHold
			}
		}
		r.IsActive = true
	case r.Status == SubscriptionStatusInactive || r.Status == SubscriptionStatusExpired:
		r.IsActive = false
		r.Tier = TierNone
		r.Period = PeriodNone
		r.GracePeriodEndMillis = 0
		r.AccountHoldEndMillis = 0
	default:
		r.IsActive = false
		if r.Tier == TierNone && r.Status != SubscriptionStatusPending {
			r = expire(r)
		}
	}
	return r
}

func expire(r SubscriptionRecord) SubscriptionRecord {
	r.IsActive = false
	r.Status = SubscriptionStatusExpired
	r.Tier = TierNone
	r.Period = PeriodNone
	r.GracePeriodEndMillis = 0
	r.AccountHoldEndMillis = 0
	r.WillAutoRenew = false
	return r
}

// Validate reports the first violated invariant at now, or nil.
func (r *SubscriptionRecord) Validate(now time.Time) error {
	noTier := r.Tier == TierNone || r.Tier == ""
	inactiveStatus := r.Status == SubscriptionStatusInactive || r.Status == SubscriptionStatusExpired
	if noTier != inactiveStatus && !(r.Status == SubscriptionStatusPending) {
		return errInvariant("tier none must match inactive or expired status")
	}
	if r.IsActive && !r.ActiveAt(now) {
		return errInvariant("active record outside its entitlement window")
	}
	if r.GracePeriodEndMillis != 0 && r.AccountHoldEndMillis != 0 {
		return errInvariant("grace period and account hold are both set")
	}
	return nil
}

type errInvariant string

func (e errInvariant) Error() string { return "subscription record invariant: " + string(e) }

// SubscriptionInfo is the feature-facing view of a record.
type SubscriptionInfo struct {
	Status        SubscriptionStatus `json:"status"`
	Tier          Tier               `json:"tier"`
	Period        Period             `json:"period"`
	IsActive      bool               `json:"is_active"`
	WillAutoRenew bool               `json:"will_auto_renew"`
	ExpireAt      *time.Time         `json:"expire_at"`
}

func (r *SubscriptionRecord) Info() *SubscriptionInfo {
	info := &SubscriptionInfo{
		Status:        r.Status,
		Tier:          r.Tier,
		Period:        r.Period,
		IsActive:      r.IsActive,
		WillAutoRenew: r.WillAutoRenew,
	}
	if r.ExpiryTimeMillis > 0 {
		t := time.UnixMilli(r.ExpiryTimeMillis).UTC()
		info.ExpireAt = &t
	}
	return info
}
