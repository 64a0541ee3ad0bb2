package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	notificationlog "github.com/fatflowers/entitlements/internal/app/service/notification_log"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/metrics"
	"github.com/fatflowers/entitlements/pkg/types"
)

var (
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrVerification marks a purchase the platform refused to vouch for.
	ErrVerification = errors.New("purchase verification failed")
)

// Client is the platform purchase ledger as seen by reconciliation.
type Client interface {
	QueryCurrentEntitlements(ctx context.Context, userID string) ([]types.Entitlement, error)
	SubscribeToTransactionUpdates(ctx context.Context, userID string) (<-chan types.TransactionEvent, error)
	Purchase(ctx context.Context, req *types.PurchaseRequest) (*types.PurchaseResult, error)
}

// Provider is one store behind the router.
type Provider interface {
	ID() types.PaymentProvider
	CurrentEntitlements(ctx context.Context, userID string) ([]types.Entitlement, error)
	// Verify checks a completed purchase with the store and remembers it for the user.
	Verify(ctx context.Context, req *types.PurchaseRequest) (*types.Entitlement, error)
}

// Router fans queries out to every configured provider and routes purchases by provider.
type Router struct {
	log       *zap.SugaredLogger
	providers []Provider
	bus       Bus
	notif     notificationlog.Recorder
}

func NewRouter(l *zap.SugaredLogger, bus Bus, notif notificationlog.Recorder, providers ...Provider) *Router {
	return &Router{log: l, providers: providers, bus: bus, notif: notif}
}

func (r *Router) provider(id types.PaymentProvider) (Provider, error) {
	for _, p := range r.providers {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
}

// QueryCurrentEntitlements fails as a whole when any provider fails, so a partial answer
// is never mistaken for a lost subscription.
func (r *Router) QueryCurrentEntitlements(ctx context.Context, userID string) ([]types.Entitlement, error) {
	defer metrics.ObserveBusinessProcess("ledger", "query", time.Now())
	results := make([][]types.Entitlement, len(r.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.providers {
		g.Go(func() error {
			ents, err := p.CurrentEntitlements(gctx, userID)
			if err != nil {
				return fmt.Errorf("%s ledger query failed: %w", p.ID(), err)
			}
			results[i] = ents
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []types.Entitlement
	for _, ents := range results {
		out = append(out, ents...)
	}
	return out, nil
}

func (r *Router) SubscribeToTransactionUpdates(ctx context.Context, userID string) (<-chan types.TransactionEvent, error) {
	return r.bus.Subscribe(ctx, userID)
}

// Purchase turns the client's purchase report into a typed result. Cancellation, pending
// and store failures are results, not errors; errors mean the ledger could not be asked.
func (r *Router) Purchase(ctx context.Context, req *types.PurchaseRequest) (*types.PurchaseResult, error) {
	if req == nil {
		return nil, errors.New("nil purchase request")
	}
	switch req.ClientOutcome {
	case types.PurchaseOutcomeUserCancelled, types.PurchaseOutcomePending:
		return &types.PurchaseResult{Outcome: req.ClientOutcome, ProductID: req.ProductID}, nil
	case types.PurchaseOutcomeFailed:
		return &types.PurchaseResult{Outcome: types.PurchaseOutcomeFailed, ProductID: req.ProductID, Error: "store reported a failed purchase"}, nil
	}

	p, err := r.provider(req.ProviderID)
	if err != nil {
		return nil, err
	}

	received := notificationlog.Received(ctx, req.ProviderID, "purchase", req.TransactionID, req)
	r.notif.Save(ctx, received)

	ent, err := p.Verify(ctx, req)
	var txnID string
	if ent != nil {
		txnID = ent.TransactionID
	}
	r.notif.Save(ctx, notificationlog.Finished(received, req.UserID, txnID, ent, err))

	log := logctx.FromCtx(ctx, r.log)
	if errors.Is(err, ErrVerification) {
		log.Warnw("purchase rejected by store", "provider", req.ProviderID, "product_id", req.ProductID, "err", err)
		return &types.PurchaseResult{Outcome: types.PurchaseOutcomeFailed, ProductID: req.ProductID, Error: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	ev := types.TransactionEvent{
		UserID:        req.UserID,
		ProviderID:    req.ProviderID,
		Type:          types.TransactionEventPurchased,
		ProductID:     ent.ProductID,
		TransactionID: ent.TransactionID,
		OccurredAt:    ent.PurchaseInstant,
	}
	if err := r.bus.Publish(ctx, ev); err != nil {
		log.Warnw("failed to publish purchase event", "err", err)
	}
	log.Infow("purchase verified", "provider", req.ProviderID, "product_id", ent.ProductID, "transaction_id", ent.TransactionID)
	return &types.PurchaseResult{Outcome: types.PurchaseOutcomeSuccess, Entitlement: ent, ProductID: ent.ProductID}, nil
}
