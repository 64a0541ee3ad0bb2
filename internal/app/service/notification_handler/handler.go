package notification_handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/entitlements/internal/app/service/ledger"
	notificationlog "github.com/fatflowers/entitlements/internal/app/service/notification_log"
	"github.com/fatflowers/entitlements/internal/app/service/remotestore"
	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_notification"
	"github.com/fatflowers/entitlements/internal/platform/google/play"
	"github.com/fatflowers/entitlements/pkg/clock"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/types"
)

var (
	// ErrUnknownUser means the notification names a subscription no user is known for.
	// Stores should not retry it.
	ErrUnknownUser   = errors.New("no user known for notification")
	ErrNotConfigured = errors.New("store is not configured")
)

type NotificationHandler struct {
	log       *zap.SugaredLogger
	cfg       *config.Config
	notif     notificationlog.Recorder
	bus       ledger.Bus
	index     ledger.Index
	remote    remotestore.Store
	publisher play.PublisherAPI
	clock     clock.Clock

	// appleRoot overrides the Apple root CA, for tests.
	appleRoot string
}

type Params struct {
	fx.In

	Log       *zap.SugaredLogger
	Config    *config.Config
	Notif     notificationlog.Recorder
	Bus       ledger.Bus
	Index     ledger.Index
	Remote    remotestore.Store
	Publisher play.PublisherAPI `optional:"true"`
	Clock     clock.Clock
}

func NewNotificationHandler(p Params) *NotificationHandler {
	return &NotificationHandler{
		log:       p.Log,
		cfg:       p.Config,
		notif:     p.Notif,
		bus:       p.Bus,
		index:     p.Index,
		remote:    p.Remote,
		publisher: p.Publisher,
		clock:     p.Clock,
	}
}

// HandleApple verifies and applies an App Store server notification.
func (h *NotificationHandler) HandleApple(ctx context.Context, signedPayload string) error {
	var (
		decoded *apple_notification.AppStoreServerNotification
		err     error
	)
	if h.appleRoot != "" {
		decoded, err = apple_notification.NewWithRoot(signedPayload, h.appleRoot)
	} else {
		decoded, err = apple_notification.New(signedPayload)
	}
	if err != nil {
		received := notificationlog.Received(ctx, types.PaymentProviderApple, "", "", map[string]string{"signed_payload": signedPayload})
		h.notif.Save(ctx, received)
		h.notif.Save(ctx, notificationlog.Finished(received, "", "", nil, err))
		return fmt.Errorf("invalid apple notification: %w", err)
	}
	if h.cfg.AppleIAP.IsProd && decoded.IsSandbox {
		logctx.FromCtx(ctx, h.log).Infow("ignoring sandbox notification in production")
		return nil
	}
	return h.handle(ctx, parseApple(decoded, h.clock.Now()))
}

// HandleGoogle decodes a Pub/Sub push and applies the real-time developer notification.
func (h *NotificationHandler) HandleGoogle(ctx context.Context, req *play.PushRequest) error {
	dev, err := play.DecodePush(req)
	if err != nil {
		return err
	}
	if dev.PackageName != "" && h.cfg.GooglePlay.PackageName != "" && dev.PackageName != h.cfg.GooglePlay.PackageName {
		return fmt.Errorf("notification for unexpected package %s", dev.PackageName)
	}

	var sub *play.Subscription
	if sn := dev.SubscriptionNotification; sn != nil && !dev.IsTest() {
		if h.publisher == nil {
			return ErrNotConfigured
		}
		purchase, err := h.publisher.VerifySubscriptionV2(ctx, h.cfg.GooglePlay.PackageName, sn.PurchaseToken)
		if err != nil {
			return fmt.Errorf("failed to fetch google subscription: %w", err)
		}
		if sub, err = play.Flatten(purchase); err != nil {
			return err
		}
	}
	return h.handle(ctx, parseGoogle(dev, sub, h.clock.Now()))
}

func (h *NotificationHandler) handle(ctx context.Context, n *Notification) (resErr error) {
	log := logctx.FromCtx(ctx, h.log).With("provider", n.Provider, "notification_type", n.Type)
	received := notificationlog.Received(ctx, n.Provider, n.Type, n.TransactionID, n.Data)
	h.notif.Save(ctx, received)

	var userID string
	result := map[string]any{"event": n.Event}
	defer func() {
		h.notif.Save(ctx, notificationlog.Finished(received, userID, n.TransactionID, result, resErr))
	}()

	if n.Test || n.Event == "" {
		log.Infow("notification ignored", "test", n.Test)
		return nil
	}
	if n.SubscriptionKey == "" {
		return errors.New("notification carries no subscription")
	}

	row, err := h.index.FindByKey(ctx, n.Provider, n.SubscriptionKey)
	if err != nil {
		return err
	}
	switch {
	case row != nil:
		userID = row.UserID
	case n.AccountUserID != "":
		userID = n.AccountUserID
	default:
		log.Warnw("notification for unknown subscription", "subscription_key", n.SubscriptionKey)
		return ErrUnknownUser
	}
	ctx = logctx.WithUser(ctx, userID)
	log = log.With("user_id", userID)

	if n.Revoked {
		if err := h.index.MarkRevoked(ctx, n.Provider, n.SubscriptionKey, n.RevokedAt); err != nil {
			return err
		}
	} else if row == nil {
		if err := h.index.Remember(ctx, h.indexRow(userID, n)); err != nil {
			return err
		}
		result["indexed"] = true
	}

	window, err := h.applyWindow(ctx, userID, n)
	if err != nil {
		return fmt.Errorf("failed to write soft state: %w", err)
	}
	if window != "" {
		result["window"] = window
	}

	err = h.bus.Publish(ctx, types.TransactionEvent{
		UserID:        userID,
		ProviderID:    n.Provider,
		Type:          n.Event,
		ProductID:     n.ProductID,
		TransactionID: n.TransactionID,
		OccurredAt:    n.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}
	log.Infow("notification handled", "event", n.Event, "window", window)
	return nil
}

func (h *NotificationHandler) indexRow(userID string, n *Notification) *models.LedgerTransaction {
	row := &models.LedgerTransaction{
		UserID:              userID,
		ProviderID:          n.Provider,
		SubscriptionKey:     n.SubscriptionKey,
		LatestTransactionID: n.TransactionID,
		ProductID:           n.ProductID,
		BasePlanID:          n.BasePlanID,
		PurchaseAt:          n.PurchaseAt,
	}
	if !n.ExpiresAt.IsZero() {
		exp := n.ExpiresAt
		row.ExpireAt = &exp
	}
	extra := &models.LedgerTransactionExtra{}
	if p, err := h.cfg.GetProductByProvider(n.Provider, n.ProductID, n.BasePlanID); err == nil {
		extra.ProductSnapshot = p
	}
	row.Extra = datatypes.NewJSONType(extra)
	return row
}

// applyWindow merge-writes the store's grace or hold window to the remote record, or
// clears a window the store reports as over. It returns what it did.
func (h *NotificationHandler) applyWindow(ctx context.Context, userID string, n *Notification) (string, error) {
	if n.Window == nil {
		return "", nil
	}
	if n.Window.End.IsZero() {
		cur, err := h.remote.GetRecord(ctx, userID)
		if err != nil {
			return "", err
		}
		if cur == nil || (cur.GracePeriodEndMillis == 0 && cur.AccountHoldEndMillis == 0) {
			return "", nil
		}
		return "cleared", h.remote.MergeWrite(ctx, userID, map[string]any{
			types.FieldGracePeriodEndMillis: int64(0),
			types.FieldAccountHoldEndMillis: int64(0),
		})
	}

	tier, per := product.ParseWithBasePlan(n.ProductID, n.BasePlanID)
	rec := types.SubscriptionRecord{
		IsActive:         true,
		Tier:             tier,
		Period:           per,
		Status:           n.Window.Status,
		StartTimeMillis:  millis(n.PurchaseAt),
		ExpiryTimeMillis: millis(n.ExpiresAt),
		WillAutoRenew:    n.AutoRenew,
		ProductID:        n.ProductID,
		PurchaseToken:    n.PurchaseToken,
		BasePlanID:       n.BasePlanID,
	}
	if n.Window.Status == types.SubscriptionStatusAccountHold {
		rec.AccountHoldEndMillis = millis(n.Window.End)
	} else {
		rec.GracePeriodEndMillis = millis(n.Window.End)
	}
	rec = rec.Normalize(h.clock.Now())
	if !rec.IsActive {
		return "", nil
	}
	return string(rec.Status), h.remote.MergeWrite(ctx, userID, rec.Fields())
}

var Module = fx.Options(
	fx.Provide(NewNotificationHandler),
)
