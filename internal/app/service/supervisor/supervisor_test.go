package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

const interval = 10 * time.Second

type chanSink struct {
	events chan reconcile.Event
}

func newSink() *chanSink { return &chanSink{events: make(chan reconcile.Event, 32)} }

func (s *chanSink) Submit(ctx context.Context, ev reconcile.Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chanSink) next(t *testing.T) reconcile.Event {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event submitted")
	}
	return reconcile.Event{}
}

// flakyLedger fails the first failures subscription attempts.
type flakyLedger struct {
	bus      *ledger.MemoryBus
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakyLedger) QueryCurrentEntitlements(context.Context, string) ([]types.Entitlement, error) {
	return nil, nil
}

func (f *flakyLedger) SubscribeToTransactionUpdates(ctx context.Context, userID string) (<-chan types.TransactionEvent, error) {
	f.mu.Lock()
	f.attempts++
	fail := f.attempts <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, errors.New("transaction stream unavailable")
	}
	return f.bus.Subscribe(ctx, userID)
}

func (f *flakyLedger) Purchase(context.Context, *types.PurchaseRequest) (*types.PurchaseResult, error) {
	return nil, errors.New("not supported")
}

// scriptedListener hands out streams the test ends by closing them.
type scriptedListener struct {
	mu    sync.Mutex
	fail  bool
	conns int
	ends  []chan struct{}
}

func (l *scriptedListener) Name() string { return "scripted" }

func (l *scriptedListener) Connect(ctx context.Context, userID string, sink Sink) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns++
	if l.fail {
		return nil, errors.New("connect refused")
	}
	end := make(chan struct{})
	l.ends = append(l.ends, end)
	return func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-end:
			return errStreamClosed
		}
	}, nil
}

func (l *scriptedListener) connections() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conns
}

func (l *scriptedListener) endLatest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	close(l.ends[len(l.ends)-1])
}

func waitTimer(t *testing.T, clk *clock.Fake) {
	t.Helper()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
}

func TestLedgerListenerReconnectsOnceAfterLongIdle(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	bus := ledger.NewMemoryBus()
	client := &flakyLedger{bus: bus, failures: 3}
	sink := newSink()
	s := New(zap.NewNop().Sugar(), clk, sink, interval, NewLedgerListener(client))
	defer s.Stop()

	s.Start("u1")
	for i := 0; i < 3; i++ {
		waitTimer(t, clk)
		require.Equal(t, StateIdle, s.State(ListenerLedger))
		// identity stays present while idle; a repeated start changes nothing
		s.Start("u1")
		clk.Advance(interval)
	}

	require.Eventually(t, func() bool { return s.State(ListenerLedger) == StateActive }, time.Second, time.Millisecond)
	require.Equal(t, 1, bus.Subscribers("u1"))
	require.Equal(t, types.SubscriptionChangeReasonRefresh, sink.next(t).Reason)

	s.Start("u1")
	require.Equal(t, 1, bus.Subscribers("u1"))
	require.Zero(t, clk.Pending())

	require.NoError(t, bus.Publish(context.Background(), types.TransactionEvent{UserID: "u1", TransactionID: "2000000123"}))
	ev := sink.next(t)
	require.Equal(t, types.SubscriptionChangeReasonTransaction, ev.Reason)
	require.Equal(t, "2000000123", ev.TransactionID)
	require.Equal(t, "u1", ev.UserID)
}

func TestStreamFailureReturnsToIdleAndRetries(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	ln := &scriptedListener{}
	s := New(zap.NewNop().Sugar(), clk, newSink(), interval, ln)
	defer s.Stop()

	s.Start("u1")
	require.Eventually(t, func() bool { return s.State("scripted") == StateActive }, time.Second, time.Millisecond)

	ln.endLatest()
	waitTimer(t, clk)
	require.Equal(t, StateIdle, s.State("scripted"))
	require.Equal(t, 1, ln.connections())

	clk.Advance(interval - time.Second)
	require.Equal(t, 1, ln.connections())
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return s.State("scripted") == StateActive }, time.Second, time.Millisecond)
	require.Equal(t, 2, ln.connections())
}

func TestStopCancelsRetryAndIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	ln := &scriptedListener{fail: true}
	s := New(zap.NewNop().Sugar(), clk, newSink(), interval, ln)

	s.Start("u1")
	waitTimer(t, clk)
	s.Stop()
	require.Zero(t, clk.Pending())
	require.Empty(t, s.UserID())
	require.Equal(t, StateIdle, s.State("scripted"))

	s.Stop()
	clk.Advance(interval)
	require.Equal(t, 1, ln.connections())
}

func TestStartWithNewIdentityTearsDownPrevious(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := remotestore.NewMemoryStore()
	sink := newSink()
	s := New(zap.NewNop().Sugar(), clk, sink, interval, NewRemoteListener(store))
	defer s.Stop()

	s.Start("u1")
	require.Eventually(t, func() bool { return store.Subscribers("u1") == 1 }, time.Second, time.Millisecond)

	s.Start("u2")
	require.Equal(t, "u2", s.UserID())
	require.Eventually(t, func() bool {
		return store.Subscribers("u1") == 0 && store.Subscribers("u2") == 1
	}, time.Second, time.Millisecond)

	rec := types.SubscriptionRecord{IsActive: true, Tier: types.TierPro, Period: types.PeriodYearly, Status: types.SubscriptionStatusActive}
	require.NoError(t, store.MergeWrite(context.Background(), "u2", rec.Fields()))
	ev := sink.next(t)
	require.Equal(t, "u2", ev.UserID)
	require.Equal(t, types.SubscriptionChangeReasonRemote, ev.Reason)
	require.Equal(t, rec, *ev.Remote)
}

func TestStartIgnoresEmptyIdentity(t *testing.T) {
	ln := &scriptedListener{}
	s := New(zap.NewNop().Sugar(), clock.NewFake(time.Unix(0, 0)), newSink(), interval, ln)
	s.Start("")
	require.Empty(t, s.UserID())
	require.Zero(t, ln.connections())
}
