package supervisor

import (
	"context"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/reconcile"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/pkg/types"
)

const (
	ListenerLedger = "ledger_transactions"
	ListenerRemote = "remote_record"
)

// LedgerListener turns ledger transaction events into reconciliations.
type LedgerListener struct {
	client ledger.Client
}

func NewLedgerListener(client ledger.Client) *LedgerListener {
	return &LedgerListener{client: client}
}

func (l *LedgerListener) Name() string { return ListenerLedger }

func (l *LedgerListener) Connect(ctx context.Context, userID string, sink Sink) (func(context.Context) error, error) {
	ch, err := l.client.SubscribeToTransactionUpdates(ctx, userID)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		// events may have been missed while disconnected
		if err := sink.Submit(ctx, reconcile.Event{UserID: userID, Reason: types.SubscriptionChangeReasonRefresh}); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-ch:
				if !ok {
					return errStreamClosed
				}
				err := sink.Submit(ctx, reconcile.Event{
					UserID:        userID,
					Reason:        types.SubscriptionChangeReasonTransaction,
					TransactionID: ev.TransactionID,
				})
				if err != nil {
					return err
				}
			}
		}
	}, nil
}

// RemoteListener forwards remote record changes.
type RemoteListener struct {
	store remotestore.Store
}

func NewRemoteListener(store remotestore.Store) *RemoteListener {
	return &RemoteListener{store: store}
}

func (l *RemoteListener) Name() string { return ListenerRemote }

func (l *RemoteListener) Connect(ctx context.Context, userID string, sink Sink) (func(context.Context) error, error) {
	ch, err := l.store.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rec, ok := <-ch:
				if !ok {
					return errStreamClosed
				}
				err := sink.Submit(ctx, reconcile.Event{
					UserID: userID,
					Reason: types.SubscriptionChangeReasonRemote,
					Remote: &rec,
				})
				if err != nil {
					return err
				}
			}
		}
	}, nil
}
