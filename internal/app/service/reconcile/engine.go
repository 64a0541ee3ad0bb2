package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/keylock"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/metrics"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/types"
)

var (
	// ErrLedgerUnavailable is recoverable: the cache keeps serving the last known record.
	ErrLedgerUnavailable = errors.New("purchase ledger unavailable")
	ErrPurchaseFailed    = errors.New("purchase failed")
)

const (
	defaultOperationTimeout = 15 * time.Second
	defaultTrustWindow      = 2 * time.Minute
)

// RecordCache is the local cache as the engine sees it.
type RecordCache interface {
	Read(userID string) types.SubscriptionRecord
	Write(ctx context.Context, userID string, rec types.SubscriptionRecord) error
}

// Event asks the engine to reconcile a user.
type Event struct {
	UserID string
	Reason types.SubscriptionChangeReason
	// Remote carries the pushed record of a remote change, saving a read.
	Remote *types.SubscriptionRecord
	// TransactionID is set for ledger transaction events.
	TransactionID string
}

type Options struct {
	OperationTimeout time.Duration
	TrustWindow      time.Duration
	QueueSize        int
}

type Engine struct {
	log    *zap.SugaredLogger
	ledger ledger.Client
	remote remotestore.Store
	cache  RecordCache
	audit  AuditLog
	clock  clock.Clock
	opts   Options

	locks     *keylock.Mutex
	overrides sync.Map // userID -> *Override
	events    chan Event
}

func NewEngine(l *zap.SugaredLogger, ledgerClient ledger.Client, remote remotestore.Store, cache RecordCache, audit AuditLog, clk clock.Clock, opts Options) *Engine {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = defaultOperationTimeout
	}
	if opts.TrustWindow <= 0 {
		opts.TrustWindow = defaultTrustWindow
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Engine{
		log:    l,
		ledger: ledgerClient,
		remote: remote,
		cache:  cache,
		audit:  audit,
		clock:  clk,
		opts:   opts,
		locks:  keylock.New(),
		events: make(chan Event, opts.QueueSize),
	}
}

func (e *Engine) override(userID string, now time.Time) *Override {
	v, ok := e.overrides.Load(userID)
	if !ok {
		return nil
	}
	o := v.(*Override)
	if !o.trusted(now, e.opts.TrustWindow) {
		e.overrides.CompareAndDelete(userID, o)
		return nil
	}
	return o
}

// Reconcile recomputes the user's authoritative record. On a ledger failure the cached
// record is returned with ErrLedgerUnavailable.
func (e *Engine) Reconcile(ctx context.Context, userID string, reason types.SubscriptionChangeReason) (types.SubscriptionRecord, error) {
	return e.reconcile(ctx, Event{UserID: userID, Reason: reason})
}

func (e *Engine) reconcile(ctx context.Context, ev Event) (types.SubscriptionRecord, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("reconcile", string(ev.Reason), start)

	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	ctx = logctx.WithUser(ctx, ev.UserID)
	log := logctx.FromCtx(ctx, e.log)
	opCtx, cancel := context.WithTimeout(ctx, e.opts.OperationTimeout)
	defer cancel()

	ents, err := e.ledger.QueryCurrentEntitlements(opCtx, ev.UserID)
	if err != nil {
		metrics.IncReconcile(string(ev.Reason), "ledger_unavailable")
		log.Warnw("ledger query failed, keeping cached record", "reason", ev.Reason, "err", err)
		return e.cache.Read(ev.UserID), fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	remote, remoteKnown := ev.Remote, ev.Remote != nil
	if !remoteKnown {
		remote, err = e.remote.GetRecord(opCtx, ev.UserID)
		if err != nil {
			log.Warnw("remote record read failed, using cached record", "err", err)
			cached := e.cache.Read(ev.UserID)
			remote = &cached
		} else {
			remoteKnown = true
		}
	}

	now := e.clock.Now()
	before := e.cache.Read(ev.UserID)
	rec := Merge(MergeInput{
		Entitlements: ents,
		Remote:       remote,
		Override:     e.override(ev.UserID, now),
		TrustWindow:  e.opts.TrustWindow,
		Now:          now,
	})

	if err := e.cache.Write(ctx, ev.UserID, rec); err != nil {
		log.Warnw("failed to persist cached record", "err", err)
	}

	extra := map[string]any{}
	if ev.TransactionID != "" {
		extra["transaction_id"] = ev.TransactionID
	}
	switch {
	case !remoteKnown:
		// the cached stand-in may lack windows only the remote copy holds
		extra["remote_write_skipped"] = "remote record unreadable"
		log.Warnw("remote merge-write deferred until the remote record is readable")
	case writeRemote(remote, rec):
		if err := e.remote.MergeWrite(opCtx, ev.UserID, rec.Fields()); err != nil {
			metrics.IncRemoteWriteFailure()
			extra["remote_write_error"] = err.Error()
			log.Warnw("remote merge-write failed, retrying on next reconciliation", "err", err)
		}
	}

	if before != rec {
		log.Infow("subscription record changed", "reason", ev.Reason,
			"tier", rec.Tier, "status", rec.Status, "is_active", rec.IsActive, "expiry_time_millis", rec.ExpiryTimeMillis)
		e.audit.Save(ctx, newSubscriptionLog(ev.UserID, ev.Reason, before, rec, extra))
	}
	metrics.IncReconcile(string(ev.Reason), "ok")
	return rec, nil
}

// writeRemote reports whether the remote copy read this pass must be merge-written.
// Users without any remote record get none until they have something other than the default.
func writeRemote(remote *types.SubscriptionRecord, rec types.SubscriptionRecord) bool {
	if remote == nil {
		return rec != types.Inactive()
	}
	return *remote != rec
}

// ApplyPurchase records the outcome of a purchase and reconciles. A verified purchase
// is trusted for the trust window even when the ledger does not list it yet.
func (e *Engine) ApplyPurchase(ctx context.Context, userID string, res *types.PurchaseResult) (types.SubscriptionRecord, error) {
	if res == nil {
		return e.cache.Read(userID), errors.New("nil purchase result")
	}
	now := e.clock.Now()
	switch res.Outcome {
	case types.PurchaseOutcomeUserCancelled:
		return e.cache.Read(userID), nil
	case types.PurchaseOutcomeFailed:
		return e.cache.Read(userID), fmt.Errorf("%w: %s", ErrPurchaseFailed, res.Error)
	case types.PurchaseOutcomePending:
		tier, per := product.Parse(res.ProductID)
		e.overrides.Store(userID, &Override{SetAt: now, Record: types.SubscriptionRecord{
			Tier:      tier,
			Period:    per,
			Status:    types.SubscriptionStatusPending,
			ProductID: res.ProductID,
		}})
	case types.PurchaseOutcomeSuccess:
		if res.Entitlement == nil {
			return e.cache.Read(userID), fmt.Errorf("%w: success without entitlement", ErrPurchaseFailed)
		}
		rec, ok := ActiveRecord(*res.Entitlement)
		if !ok {
			return e.cache.Read(userID), fmt.Errorf("%w: product %s grants no tier", ErrPurchaseFailed, res.Entitlement.ProductID)
		}
		e.overrides.Store(userID, &Override{SetAt: now, Record: rec})
	default:
		return e.cache.Read(userID), fmt.Errorf("unknown purchase outcome %q", res.Outcome)
	}

	rec, err := e.Reconcile(ctx, userID, types.SubscriptionChangeReasonPurchase)
	if errors.Is(err, ErrLedgerUnavailable) && res.Outcome == types.PurchaseOutcomeSuccess {
		return e.applyOverride(ctx, userID)
	}
	return rec, err
}

// applyOverride writes a trusted active override straight to the cache when the ledger
// cannot be asked.
func (e *Engine) applyOverride(ctx context.Context, userID string) (types.SubscriptionRecord, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()
	now := e.clock.Now()
	o := e.override(userID, now)
	if o == nil {
		return e.cache.Read(userID), nil
	}
	rec := o.Record.Normalize(now)
	before := e.cache.Read(userID)
	if err := e.cache.Write(ctx, userID, rec); err != nil {
		logctx.FromCtx(ctx, e.log).Warnw("failed to persist cached record", "user_id", userID, "err", err)
	}
	if before != rec {
		e.audit.Save(ctx, newSubscriptionLog(userID, types.SubscriptionChangeReasonPurchase, before, rec, map[string]any{"optimistic": true}))
	}
	return rec, nil
}

// Submit queues an event for Run, blocking while the queue is full.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes queued events one at a time until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			if _, err := e.reconcile(ctx, ev); err != nil && ctx.Err() == nil {
				e.log.Warnw("reconciliation failed", "user_id", ev.UserID, "reason", ev.Reason, "err", err)
			}
		}
	}
}
