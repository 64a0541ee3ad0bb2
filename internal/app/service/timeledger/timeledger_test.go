package timeledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/cache"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

var (
	start = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	allowances = map[types.Tier]types.Allowance{
		types.TierLite: {LiveSeconds: 600},
		types.TierPlus: {LiveSeconds: 3600, CallSeconds: 1200},
	}
)

func allowanceFor(tier types.Tier) (types.Allowance, bool) {
	a, ok := allowances[tier]
	return a, ok
}

func activeRecord(tier types.Tier, startAt time.Time) types.SubscriptionRecord {
	return types.SubscriptionRecord{
		IsActive:         true,
		Tier:             tier,
		Period:           types.PeriodMonthly,
		Status:           types.SubscriptionStatusActive,
		StartTimeMillis:  startAt.UnixMilli(),
		ExpiryTimeMillis: startAt.AddDate(0, 1, 0).UnixMilli(),
	}
}

func newLedgerWithClock(t *testing.T) (*Ledger, *cache.Cache, *clock.Fake) {
	t.Helper()
	l := zap.NewNop().Sugar()
	clk := clock.NewFake(start)
	c := cache.New(l, nil, clk, 0)
	return New(l, c, allowanceFor, clk), c, clk
}

func newLedger(t *testing.T) (*Ledger, *cache.Cache) {
	t.Helper()
	ledger, c, _ := newLedgerWithClock(t)
	return ledger, c
}

func TestRemainingDecreasesThenRefillsOnNewPeriod(t *testing.T) {
	ledger, c := newLedger(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start)))

	prev := ledger.Remaining("u1", types.BudgetKindLive)
	require.Equal(t, int64(3600), prev)
	for _, s := range []int64{100, 0, 1500, 2500, 10} {
		_, err := ledger.Consume(ctx, "u1", types.BudgetKindLive, s)
		require.NoError(t, err)
		cur := ledger.Remaining("u1", types.BudgetKindLive)
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
	require.Zero(t, prev)
	require.False(t, ledger.CanStart("u1", types.BudgetKindLive))
	// over-consumption is recorded, never clamped
	require.Equal(t, int64(4110), ledger.Usage("u1").LiveTimeUsedSeconds)
	require.True(t, ledger.CanStart("u1", types.BudgetKindCall))

	renewed := start.AddDate(0, 1, 0)
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, renewed)))
	require.Equal(t, int64(3600), ledger.Remaining("u1", types.BudgetKindLive))
	require.Equal(t, types.Usage{CurrentPeriodStartMillis: renewed.UnixMilli()}, ledger.Usage("u1"))
}

func TestResetIsIdempotentWithinPeriod(t *testing.T) {
	ledger, c := newLedger(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start)))

	require.True(t, ledger.CheckAndResetIfNewPeriod("u1"))
	_, err := ledger.Consume(ctx, "u1", types.BudgetKindCall, 300)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.False(t, ledger.CheckAndResetIfNewPeriod("u1"))
		require.Equal(t, int64(300), ledger.Usage("u1").CallTimeUsedSeconds)
	}

	// an older start never resets
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start.Add(-time.Hour))))
	require.False(t, ledger.CheckAndResetIfNewPeriod("u1"))
	require.Equal(t, int64(300), ledger.Usage("u1").CallTimeUsedSeconds)
}

func TestTierWithoutAllowanceHasNothingRemaining(t *testing.T) {
	ledger, c := newLedger(t)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, "lite", activeRecord(types.TierLite, start)))
	require.Equal(t, int64(600), ledger.Remaining("lite", types.BudgetKindLive))
	require.Zero(t, ledger.Remaining("lite", types.BudgetKindCall))
	require.False(t, ledger.CanStart("lite", types.BudgetKindCall))

	require.NoError(t, c.Write(ctx, "pro", activeRecord(types.TierPro, start)))
	require.Zero(t, ledger.Remaining("pro", types.BudgetKindLive))
}

func TestInactiveRecordKeepsCountersAndGrantsNothing(t *testing.T) {
	ledger, c := newLedger(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start)))
	_, err := ledger.Consume(ctx, "u1", types.BudgetKindLive, 900)
	require.NoError(t, err)

	require.NoError(t, c.Write(ctx, "u1", types.Inactive()))
	require.Zero(t, ledger.Remaining("u1", types.BudgetKindLive))
	require.False(t, ledger.CheckAndResetIfNewPeriod("u1"))
	require.Equal(t, int64(900), ledger.Usage("u1").LiveTimeUsedSeconds)

	require.Zero(t, ledger.Remaining("nobody", types.BudgetKindLive))
}

func TestConsumeRejectsInvalidInput(t *testing.T) {
	ledger, _ := newLedger(t)
	_, err := ledger.Consume(context.Background(), "u1", types.BudgetKindLive, -1)
	require.ErrorIs(t, err, ErrInvalidSeconds)
	_, err = ledger.Consume(context.Background(), "u1", types.BudgetKind("video"), 10)
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestConcurrentConsumeIsAdditive(t *testing.T) {
	ledger, c := newLedger(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start)))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Consume(ctx, "u1", types.BudgetKindCall, 5)
			require.NoError(t, err)
			_ = ledger.Remaining("u1", types.BudgetKindCall)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(200), ledger.Usage("u1").CallTimeUsedSeconds)
	require.Equal(t, int64(1000), ledger.Remaining("u1", types.BudgetKindCall))
}

func TestExpiredRecordGrantsNothingBeforeReconciliation(t *testing.T) {
	ledger, c, clk := newLedgerWithClock(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "u1", activeRecord(types.TierPlus, start)))
	_, err := ledger.Consume(ctx, "u1", types.BudgetKindLive, 100)
	require.NoError(t, err)
	require.Equal(t, int64(3500), ledger.Remaining("u1", types.BudgetKindLive))
	require.True(t, ledger.CanStart("u1", types.BudgetKindCall))

	// expiry passes, no event rewrites the cached record
	clk.Advance(32 * 24 * time.Hour)
	require.Zero(t, ledger.Remaining("u1", types.BudgetKindLive))
	require.Zero(t, ledger.Remaining("u1", types.BudgetKindCall))
	require.False(t, ledger.CanStart("u1", types.BudgetKindLive))
	require.False(t, ledger.CanStart("u1", types.BudgetKindCall))
	require.False(t, ledger.CheckAndResetIfNewPeriod("u1"))
	require.Equal(t, int64(100), ledger.Usage("u1").LiveTimeUsedSeconds)
}

func TestGraceWindowKeepsAllowanceAfterExpiry(t *testing.T) {
	ledger, c, clk := newLedgerWithClock(t)
	ctx := context.Background()
	rec := activeRecord(types.TierPlus, start)
	rec.GracePeriodEndMillis = time.UnixMilli(rec.ExpiryTimeMillis).Add(72 * time.Hour).UnixMilli()
	require.NoError(t, c.Write(ctx, "u1", rec))

	clk.Advance(start.AddDate(0, 1, 1).Sub(start))
	require.Equal(t, int64(3600), ledger.Remaining("u1", types.BudgetKindLive))
	require.True(t, ledger.CanStart("u1", types.BudgetKindLive))

	clk.Advance(3 * 24 * time.Hour)
	require.Zero(t, ledger.Remaining("u1", types.BudgetKindLive))
	require.False(t, ledger.CanStart("u1", types.BudgetKindLive))
}
