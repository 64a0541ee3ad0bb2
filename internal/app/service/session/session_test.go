package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/internal/app/service/supervisor"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/types"
)

type recordingListeners struct {
	starts []string
	stops  int
}

func (r *recordingListeners) Start(userID string) { r.starts = append(r.starts, userID) }
func (r *recordingListeners) Stop()               { r.stops++ }

type loaderFunc func(ctx context.Context, userID string) error

func (f loaderFunc) Load(ctx context.Context, userID string) error { return f(ctx, userID) }

func TestLoginHydratesAndStartsListeners(t *testing.T) {
	var loaded []string
	listeners := &recordingListeners{}
	h := New(zap.NewNop().Sugar(), loaderFunc(func(_ context.Context, userID string) error {
		loaded = append(loaded, userID)
		return errors.New("redis down")
	}), listeners)

	require.ErrorIs(t, h.Login(context.Background(), ""), ErrEmptyUserID)
	_, ok := h.Current()
	require.False(t, ok)

	require.NoError(t, h.Login(context.Background(), "u1"))
	require.NoError(t, h.Login(context.Background(), "u2"))
	uid, ok := h.Current()
	require.True(t, ok)
	require.Equal(t, "u2", uid)
	require.Equal(t, []string{"u1", "u2"}, loaded)
	require.Equal(t, []string{"u1", "u2"}, listeners.starts)

	h.Logout(context.Background())
	h.Logout(context.Background())
	_, ok = h.Current()
	require.False(t, ok)
	require.Equal(t, 2, listeners.stops)
}

type noopSink struct{}

func (noopSink) Submit(context.Context, reconcile.Event) error { return nil }

type busLedger struct{ bus *ledger.MemoryBus }

func (b busLedger) QueryCurrentEntitlements(context.Context, string) ([]types.Entitlement, error) {
	return nil, nil
}

func (b busLedger) SubscribeToTransactionUpdates(ctx context.Context, userID string) (<-chan types.TransactionEvent, error) {
	return b.bus.Subscribe(ctx, userID)
}

func (b busLedger) Purchase(context.Context, *types.PurchaseRequest) (*types.PurchaseResult, error) {
	return nil, errors.New("not supported")
}

func TestLogoutTearsDownSubscriptions(t *testing.T) {
	bus := ledger.NewMemoryBus()
	store := remotestore.NewMemoryStore()
	sup := supervisor.New(zap.NewNop().Sugar(), clock.NewFake(time.Unix(0, 0)), noopSink{}, time.Second,
		supervisor.NewLedgerListener(busLedger{bus: bus}),
		supervisor.NewRemoteListener(store),
	)
	h := New(zap.NewNop().Sugar(), loaderFunc(func(context.Context, string) error { return nil }), sup)

	require.NoError(t, h.Login(context.Background(), "u1"))
	require.Eventually(t, func() bool {
		return bus.Subscribers("u1") == 1 && store.Subscribers("u1") == 1
	}, time.Second, time.Millisecond)

	h.Logout(context.Background())
	require.Eventually(t, func() bool {
		return bus.Subscribers("u1") == 0 && store.Subscribers("u1") == 0
	}, time.Second, time.Millisecond)
	require.Equal(t, supervisor.StateIdle, sup.State(supervisor.ListenerLedger))
}
