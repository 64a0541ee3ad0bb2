package notification_handler

import (
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
)

// SoftWindow is a grace period or account hold reported by the store. A zero End
// means the store says the window is over.
type SoftWindow struct {
	Status types.SubscriptionStatus
	End    time.Time
}

// Notification is a decoded server notification in store-neutral form.
type Notification struct {
	Provider types.PaymentProvider
	// Type is the store's own notification type.
	Type       string
	Test       bool
	OccurredAt time.Time
	Event      types.TransactionEventType

	TransactionID string
	// SubscriptionKey is the Apple original transaction id or the Google purchase token.
	SubscriptionKey string
	// AccountUserID is the user named by the payload itself, empty when it names none.
	AccountUserID string

	ProductID     string
	BasePlanID    string
	PurchaseToken string
	PurchaseAt    time.Time
	ExpiresAt     time.Time
	AutoRenew     bool

	Revoked   bool
	RevokedAt time.Time

	Window *SoftWindow
	Data   any
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
