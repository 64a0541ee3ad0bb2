package models

import (
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
	"gorm.io/datatypes"
)

type LedgerTransactionExtra struct {
	// ProductSnapshot is the catalog entry at verification time.
	ProductSnapshot *types.ProductDetails `json:"product_snapshot,omitempty"`
	// Environment is the store environment the transaction came from (Production, Sandbox).
	Environment string `json:"environment,omitempty"`
}

// LedgerTransaction indexes the subscriptions a user holds on a platform so the ledger
// can ask the platform about exactly those. SubscriptionKey is the Apple original
// transaction id or the Google purchase token.
type LedgerTransaction struct {
	ID                  string                `gorm:"column:id;type:uuid;primary_key;index:idx_ledger_transaction_user_id_id,priority:2,sort:desc" json:"id"`
	UserID              string                `gorm:"column:user_id;type:varchar(64);not null;index:idx_ledger_transaction_user_id_id,priority:1" json:"user_id"`
	ProviderID          types.PaymentProvider `gorm:"column:provider_id;type:varchar(64);not null;uniqueIndex:unique_provider_id_subscription_key,priority:1" json:"provider_id"`
	SubscriptionKey     string                `gorm:"column:subscription_key;type:varchar(512);not null;uniqueIndex:unique_provider_id_subscription_key,priority:2" json:"subscription_key"`
	LatestTransactionID string                `gorm:"column:latest_transaction_id;type:varchar(128)" json:"latest_transaction_id"`
	ProductID           string                `gorm:"column:product_id;type:varchar(128);not null" json:"product_id"`
	BasePlanID          string                `gorm:"column:base_plan_id;type:varchar(128)" json:"base_plan_id"`
	PurchaseAt          time.Time             `gorm:"column:purchase_at" json:"purchase_at"`
	// ExpireAt is the platform-computed expiry, informational only.
	ExpireAt  *time.Time                                  `gorm:"column:expire_at;default:null" json:"expire_at"`
	RevokedAt *time.Time                                  `gorm:"column:revoked_at;default:null" json:"revoked_at"`
	Extra     datatypes.JSONType[*LedgerTransactionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time                                   `json:"created_at"`
	UpdatedAt time.Time                                   `json:"updated_at"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transaction"
}

func (t *LedgerTransaction) Revoked() bool {
	return t != nil && t.RevokedAt != nil
}

func (t *LedgerTransaction) ProductSnapshot() *types.ProductDetails {
	if t == nil || t.Extra.Data() == nil {
		return nil
	}
	return t.Extra.Data().ProductSnapshot
}
