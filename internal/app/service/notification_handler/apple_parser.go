package notification_handler

import (
	"time"

	"github.com/fatflowers/entitlements/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_notification"
	"github.com/fatflowers/entitlements/pkg/types"
)

func appleEvent(notificationType, subtype string) types.TransactionEventType {
	switch notificationType {
	case apple_notification.TypeSubscribed:
		return types.TransactionEventPurchased
	case apple_notification.TypeDidRenew:
		if subtype == apple_notification.SubtypeBillingRecovery {
			return types.TransactionEventRecovered
		}
		return types.TransactionEventRenewed
	case apple_notification.TypeDidFailToRenew:
		if subtype == apple_notification.SubtypeGracePeriod {
			return types.TransactionEventGracePeriod
		}
		return types.TransactionEventAccountHold
	case apple_notification.TypeGracePeriodExpired, apple_notification.TypeExpired:
		return types.TransactionEventExpired
	case apple_notification.TypeRefund, apple_notification.TypeRevoke:
		return types.TransactionEventRevoked
	}
	return types.TransactionEventUpdated
}

// parseApple maps a verified App Store notification. Billing retry without a grace period
// grants no access on the App Store, so only grace opens a window.
func parseApple(n *apple_notification.AppStoreServerNotification, now time.Time) *Notification {
	out := &Notification{
		Provider:   types.PaymentProviderApple,
		Test:       n.IsTestNotification,
		OccurredAt: now,
		Data:       n,
	}
	if n.Payload != nil {
		out.Type = n.Payload.NotificationType
		out.Event = appleEvent(n.Payload.NotificationType, n.Payload.Subtype)
		if t := fromMillis(n.Payload.SignedDate); !t.IsZero() {
			out.OccurredAt = t
		}
	}
	txn := n.TransactionInfo
	if out.Test || txn == nil {
		return out
	}

	out.TransactionID = txn.TransactionId
	out.SubscriptionKey = txn.OriginalTransactionId
	out.ProductID = txn.ProductId
	out.PurchaseAt = fromMillis(txn.PurchaseDate)
	out.ExpiresAt = fromMillis(txn.ExpiresDate)
	if txn.AppAccountToken != "" {
		if uid, err := apple_iap.UUIDToUserID(txn.AppAccountToken); err == nil {
			out.AccountUserID = uid
		}
	}
	if txn.RevocationDate > 0 || out.Event == types.TransactionEventRevoked {
		out.Revoked = true
		out.RevokedAt = fromMillis(txn.RevocationDate)
		if out.RevokedAt.IsZero() {
			out.RevokedAt = out.OccurredAt
		}
	}
	if r := n.RenewalInfo; r != nil {
		out.AutoRenew = r.AutoRenewStatus == 1
	}

	switch out.Event {
	case types.TransactionEventGracePeriod:
		if r := n.RenewalInfo; r != nil && r.GracePeriodExpiresDate > 0 {
			out.Window = &SoftWindow{Status: types.SubscriptionStatusGracePeriod, End: fromMillis(r.GracePeriodExpiresDate)}
		}
	case types.TransactionEventRenewed, types.TransactionEventRecovered,
		types.TransactionEventExpired, types.TransactionEventRevoked:
		out.Window = &SoftWindow{}
	}
	return out
}
