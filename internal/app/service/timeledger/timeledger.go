package timeledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/keylock"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/metrics"
	"github.com/fatflowers/entitlements/pkg/types"
)

var (
	ErrInvalidSeconds = errors.New("seconds must not be negative")
	ErrInvalidKind    = errors.New("unknown budget kind")
)

// Store is where records and usage counters live.
type Store interface {
	Read(userID string) types.SubscriptionRecord
	Usage(userID string) (types.Usage, bool)
	StoreUsage(userID string, u types.Usage)
}

// AllowanceFunc returns a tier's budget, false when the tier has none.
type AllowanceFunc func(tier types.Tier) (types.Allowance, bool)

// Ledger meters the live and call budgets of each user against their tier.
type Ledger struct {
	log        *zap.SugaredLogger
	store      Store
	allowances AllowanceFunc
	clock      clock.Clock
	locks      *keylock.Mutex
}

func New(l *zap.SugaredLogger, store Store, allowances AllowanceFunc, clk clock.Clock) *Ledger {
	return &Ledger{log: l, store: store, allowances: allowances, clock: clk, locks: keylock.New()}
}

// newPeriod reports whether rec starts a period usage has not been reset for. The
// stored IsActive flag is not trusted, access is evaluated at now.
func newPeriod(rec types.SubscriptionRecord, u types.Usage, now time.Time) bool {
	return rec.ActiveAt(now) && rec.StartTimeMillis > u.CurrentPeriodStartMillis
}

// snapshot returns the usage as of the current record, resetting first when a new
// period started. The common path takes no lock.
func (l *Ledger) snapshot(userID string) (types.SubscriptionRecord, types.Usage) {
	rec := l.store.Read(userID)
	u, _ := l.store.Usage(userID)
	if newPeriod(rec, u, l.clock.Now()) {
		l.CheckAndResetIfNewPeriod(userID)
		u, _ = l.store.Usage(userID)
	}
	return rec, u
}

// Usage returns the user's counters for the current period.
func (l *Ledger) Usage(userID string) types.Usage {
	_, u := l.snapshot(userID)
	return u
}

// Remaining is the unused part of the tier's allowance, never negative. Inactive users
// and tiers without an allowance for kind get zero.
func (l *Ledger) Remaining(userID string, kind types.BudgetKind) int64 {
	rec, u := l.snapshot(userID)
	if !rec.ActiveAt(l.clock.Now()) {
		return 0
	}
	a, ok := l.allowances(rec.Tier)
	if !ok || a.For(kind) <= 0 {
		return 0
	}
	return max(0, a.For(kind)-u.Used(kind))
}

// CanStart gates the start of a metered session.
func (l *Ledger) CanStart(userID string, kind types.BudgetKind) bool {
	return l.Remaining(userID, kind) > 0
}

// Consume adds seconds to the user's usage. It does not check the allowance.
func (l *Ledger) Consume(ctx context.Context, userID string, kind types.BudgetKind, seconds int64) (types.Usage, error) {
	if !kind.Valid() {
		return types.Usage{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if seconds < 0 {
		return types.Usage{}, ErrInvalidSeconds
	}
	defer metrics.ObserveBusinessProcess("time_ledger", "consume", time.Now())

	unlock := l.locks.Lock(userID)
	defer unlock()
	l.resetLocked(userID)

	u, _ := l.store.Usage(userID)
	if seconds == 0 {
		return u, nil
	}
	u = u.Add(kind, seconds)
	l.store.StoreUsage(userID, u)
	logctx.FromCtx(ctx, l.log).Infow("time consumed", "user_id", userID, "kind", kind, "seconds", seconds, "used", u.Used(kind))
	return u, nil
}

// CheckAndResetIfNewPeriod zeroes both counters once per period, when the record's
// start is strictly newer than the stored period start. It reports whether it reset.
func (l *Ledger) CheckAndResetIfNewPeriod(userID string) bool {
	unlock := l.locks.Lock(userID)
	defer unlock()
	return l.resetLocked(userID)
}

func (l *Ledger) resetLocked(userID string) bool {
	rec := l.store.Read(userID)
	u, _ := l.store.Usage(userID)
	if !newPeriod(rec, u, l.clock.Now()) {
		return false
	}
	l.store.StoreUsage(userID, types.Usage{CurrentPeriodStartMillis: rec.StartTimeMillis})
	l.log.Infow("usage reset for new period", "user_id", userID,
		"period_start_millis", rec.StartTimeMillis, "live_used", u.LiveTimeUsedSeconds, "call_used", u.CallTimeUsedSeconds)
	return true
}

func provideLedger(l *zap.SugaredLogger, cfg *config.Config, c *cache.Cache, clk clock.Clock) *Ledger {
	return New(l, c, cfg.AllowanceFor, clk)
}

var Module = fx.Options(
	fx.Provide(provideLedger),
)
