package remotestore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

type fakeRow struct {
	mu      sync.Mutex
	version int64
	rec     types.SubscriptionRecord
	err     error
}

func (r *fakeRow) set(version int64, tier types.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = version
	r.rec = types.Inactive()
	r.rec.Tier = tier
}

func (r *fakeRow) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRow) fetch(context.Context) (int64, types.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version, r.rec, r.err
}

func tick(t *testing.T, clk *clock.Fake, d time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(d)
}

func TestPollEmitsOnVersionChange(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	row := &fakeRow{}
	row.set(1, types.TierLite)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := poll(ctx, zap.NewNop().Sugar(), clk, time.Second, row.fetch)
	require.NoError(t, err)

	// unchanged version stays quiet
	tick(t, clk, time.Second)
	row.set(2, types.TierPro)
	tick(t, clk, time.Second)

	select {
	case rec := <-ch:
		require.Equal(t, types.TierPro, rec.Tier)
	case <-time.After(time.Second):
		t.Fatal("change not emitted")
	}
	require.Len(t, ch, 0)
}

func TestPollInitialErrorIsReturned(t *testing.T) {
	row := &fakeRow{}
	row.fail(errors.New("db down"))
	_, err := poll(context.Background(), zap.NewNop().Sugar(), clock.NewFake(time.Unix(0, 0)), time.Second, row.fetch)
	require.Error(t, err)
}

func TestPollClosesOnFailure(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	row := &fakeRow{}
	ch, err := poll(context.Background(), zap.NewNop().Sugar(), clk, time.Second, row.fetch)
	require.NoError(t, err)

	row.fail(errors.New("db down"))
	tick(t, clk, time.Second)
	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream did not close")
	}
}

func TestPollStopsOnCancel(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	row := &fakeRow{}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := poll(ctx, zap.NewNop().Sugar(), clk, time.Second, row.fetch)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stream did not close")
	}
}

func TestRecordFromDocument(t *testing.T) {
	rec, err := recordFromDocument(bson.M{
		"_id":                       "u1",
		"version":                   int32(4),
		types.FieldIsActive:         true,
		types.FieldTier:             "plus",
		types.FieldPeriod:           "weekly",
		types.FieldStatus:           "active",
		types.FieldExpiryTimeMillis: int64(99),
		types.FieldStartTimeMillis:  int32(10),
	})
	require.NoError(t, err)
	require.Equal(t, types.TierPlus, rec.Tier)
	require.Equal(t, types.PeriodWeekly, rec.Period)
	require.Equal(t, int64(99), rec.ExpiryTimeMillis)
	require.Equal(t, int64(10), rec.StartTimeMillis)
	require.True(t, rec.IsActive)
}
