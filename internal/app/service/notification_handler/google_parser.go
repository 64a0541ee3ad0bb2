package notification_handler

import (
	"time"

	"github.com/awa/go-iap/playstore"

	"github.com/fatflowers/entitlements/internal/platform/google/play"
	"github.com/fatflowers/entitlements/pkg/types"
)

// accountHoldWindow is Google Play's default account hold duration.
const accountHoldWindow = 30 * 24 * time.Hour

func googleEvent(t playstore.SubscriptionNotificationType) types.TransactionEventType {
	switch t {
	case play.NotificationPurchased:
		return types.TransactionEventPurchased
	case play.NotificationRenewed:
		return types.TransactionEventRenewed
	case play.NotificationRecovered:
		return types.TransactionEventRecovered
	case play.NotificationCanceled:
		return types.TransactionEventCanceled
	case play.NotificationGracePeriod:
		return types.TransactionEventGracePeriod
	case play.NotificationAccountHold:
		return types.TransactionEventAccountHold
	case play.NotificationPaused:
		return types.TransactionEventPaused
	case play.NotificationRevoked:
		return types.TransactionEventRevoked
	case play.NotificationExpired:
		return types.TransactionEventExpired
	}
	return types.TransactionEventUpdated
}

// parseGoogle combines an RTDN with the subscription fetched from the Publisher API;
// sub is nil for test notifications.
func parseGoogle(dev *play.DeveloperNotification, sub *play.Subscription, now time.Time) *Notification {
	out := &Notification{
		Provider:   types.PaymentProviderGoogle,
		Test:       dev.IsTest(),
		OccurredAt: dev.EventTime(),
		Data:       dev,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = now
	}
	sn := dev.SubscriptionNotification
	if out.Test || sn == nil {
		out.Type = "unsupported"
		if out.Test {
			out.Type = "test"
		}
		return out
	}

	out.Event = googleEvent(sn.NotificationType)
	out.Type = string(out.Event)
	out.TransactionID = sn.PurchaseToken
	out.SubscriptionKey = sn.PurchaseToken
	out.PurchaseToken = sn.PurchaseToken
	out.ProductID = sn.SubscriptionID
	if out.Event == types.TransactionEventRevoked {
		out.Revoked = true
		out.RevokedAt = out.OccurredAt
	}
	if sub == nil {
		return out
	}

	out.AccountUserID = sub.AccountID
	if sub.ProductID != "" {
		out.ProductID = sub.ProductID
	}
	out.BasePlanID = sub.BasePlanID
	out.PurchaseAt = sub.StartTime
	out.ExpiresAt = sub.ExpiryTime
	out.AutoRenew = sub.AutoRenewing

	switch {
	case out.Event == types.TransactionEventGracePeriod || sub.State == play.StateInGracePeriod:
		if !sub.ExpiryTime.IsZero() {
			out.Window = &SoftWindow{Status: types.SubscriptionStatusGracePeriod, End: sub.ExpiryTime}
		}
	case out.Event == types.TransactionEventAccountHold || sub.State == play.StateOnHold:
		if !sub.ExpiryTime.IsZero() {
			out.Window = &SoftWindow{Status: types.SubscriptionStatusAccountHold, End: sub.ExpiryTime.Add(accountHoldWindow)}
		}
	case out.Event == types.TransactionEventRenewed, out.Event == types.TransactionEventRecovered,
		out.Event == types.TransactionEventExpired, out.Event == types.TransactionEventRevoked,
		sn.NotificationType == play.NotificationRestarted:
		out.Window = &SoftWindow{}
	}
	return out
}
