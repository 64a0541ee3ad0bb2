package types

// BudgetKind names a metered time budget.
type BudgetKind string

const (
	BudgetKindLive BudgetKind = "live"
	BudgetKindCall BudgetKind = "call"
)

var BudgetKinds = []BudgetKind{BudgetKindLive, BudgetKindCall}

func (k BudgetKind) Valid() bool {
	return k == BudgetKindLive || k == BudgetKindCall
}

const (
	FieldLiveTimeUsedSeconds      = "live_time_used_seconds"
	FieldCallTimeUsedSeconds      = "call_time_used_seconds"
	FieldCurrentPeriodStartMillis = "current_period_start_millis"
)

// Usage is the time allocation state of one user. Values are immutable once shared.
type Usage struct {
	LiveTimeUsedSeconds      int64 `json:"live_time_used_seconds"`
	CallTimeUsedSeconds      int64 `json:"call_time_used_seconds"`
	CurrentPeriodStartMillis int64 `json:"current_period_start_millis"`
}

func (u Usage) Used(kind BudgetKind) int64 {
	switch kind {
	case BudgetKindLive:
		return u.LiveTimeUsedSeconds
	case BudgetKindCall:
		return u.CallTimeUsedSeconds
	}
	return 0
}

// Add returns a copy with seconds added to kind.
func (u Usage) Add(kind BudgetKind, seconds int64) Usage {
	switch kind {
	case BudgetKindLive:
		u.LiveTimeUsedSeconds += seconds
	case BudgetKindCall:
		u.CallTimeUsedSeconds += seconds
	}
	return u
}

// Allowance is the per-period budget a tier grants, in seconds.
type Allowance struct {
	LiveSeconds int64 `json:"live" mapstructure:"live"`
	CallSeconds int64 `json:"call" mapstructure:"call"`
}

func (a Allowance) For(kind BudgetKind) int64 {
	switch kind {
	case BudgetKindLive:
		return a.LiveSeconds
	case BudgetKindCall:
		return a.CallSeconds
	}
	return 0
}
