package types

import "time"

// Entitlement is a currently-held purchase as reported by a platform ledger.
type Entitlement struct {
	ProviderID      PaymentProvider `json:"provider_id"`
	ProductID       string          `json:"product_id"`
	PurchaseInstant time.Time       `json:"purchase_instant"`
	TransactionID   string          `json:"transaction_id"`
	ProductType     ProductType     `json:"product_type"`
	// Verified is false when the platform could not vouch for the transaction.
	Verified      bool   `json:"verified"`
	PurchaseToken string `json:"purchase_token,omitempty"`
	BasePlanID    string `json:"base_plan_id,omitempty"`
}

type TransactionEventType string

const (
	TransactionEventPurchased   TransactionEventType = "purchased"
	TransactionEventRenewed     TransactionEventType = "renewed"
	TransactionEventCanceled    TransactionEventType = "canceled"
	TransactionEventExpired     TransactionEventType = "expired"
	TransactionEventRevoked     TransactionEventType = "revoked"
	TransactionEventGracePeriod TransactionEventType = "grace_period"
	TransactionEventAccountHold TransactionEventType = "account_hold"
	TransactionEventRecovered   TransactionEventType = "recovered"
	TransactionEventPaused      TransactionEventType = "paused"
	TransactionEventPending     TransactionEventType = "pending"
	TransactionEventUpdated     TransactionEventType = "updated"
)

// TransactionEvent notifies a user's listener that the ledger changed. It is a trigger:
// reconciliation always re-queries current entitlements.
type TransactionEvent struct {
	UserID        string               `json:"user_id"`
	ProviderID    PaymentProvider      `json:"provider_id"`
	Type          TransactionEventType `json:"type"`
	ProductID     string               `json:"product_id,omitempty"`
	TransactionID string               `json:"transaction_id,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

type PurchaseOutcome string

const (
	PurchaseOutcomeSuccess       PurchaseOutcome = "success"
	PurchaseOutcomeUserCancelled PurchaseOutcome = "user_cancelled"
	PurchaseOutcomePending       PurchaseOutcome = "pending"
	PurchaseOutcomeFailed        PurchaseOutcome = "failed"
)

// PurchaseRequest is what a client reports after the store purchase sheet closes.
type PurchaseRequest struct {
	UserID     string          `json:"user_id"`
	ProviderID PaymentProvider `json:"provider_id"`
	ProductID  string          `json:"product_id"`
	// TransactionID identifies an Apple transaction.
	TransactionID string `json:"transaction_id"`
	// PurchaseToken identifies a Google Play purchase.
	PurchaseToken string `json:"purchase_token"`
	// ClientOutcome is the store UI result; cancellation and pending skip verification.
	ClientOutcome PurchaseOutcome `json:"client_outcome"`
}

type PurchaseResult struct {
	Outcome     PurchaseOutcome `json:"outcome"`
	Entitlement *Entitlement    `json:"entitlement,omitempty"`
	ProductID   string          `json:"product_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func (r *PurchaseResult) Succeeded() bool {
	return r != nil && r.Outcome == PurchaseOutcomeSuccess && r.Entitlement != nil
}
