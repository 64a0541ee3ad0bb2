package models

import (
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
)

// SubscriptionRecord is the remote copy of a user's authoritative record.
// Columns use the record field names so merge-writes map onto them directly.
type SubscriptionRecord struct {
	UserID string `gorm:"column:user_id;type:varchar(64);primary_key" json:"user_id"`
	// Version increases on every merge-write; pollers compare it to detect changes.
	Version              int64                    `gorm:"column:version;not null;default:0" json:"version"`
	IsActive             bool                     `gorm:"column:is_active;not null;default:false" json:"is_active"`
	Tier                 types.Tier               `gorm:"column:tier;type:varchar(16);not null;default:'none'" json:"tier"`
	Period               types.Period             `gorm:"column:period;type:varchar(16);not null;default:'none'" json:"period"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;default:'inactive'" json:"status"`
	StartTimeMillis      int64                    `gorm:"column:start_time_millis;not null;default:0" json:"start_time_millis"`
	ExpiryTimeMillis     int64                    `gorm:"column:expiry_time_millis;not null;default:0" json:"expiry_time_millis"`
	GracePeriodEndMillis int64                    `gorm:"column:grace_period_end_millis;not null;default:0" json:"grace_period_end_millis"`
	AccountHoldEndMillis int64                    `gorm:"column:account_hold_end_millis;not null;default:0" json:"account_hold_end_millis"`
	WillAutoRenew        bool                     `gorm:"column:will_auto_renew;not null;default:false" json:"will_auto_renew"`
	ProductID            string                   `gorm:"column:product_id;type:varchar(128)" json:"product_id"`
	PurchaseToken        string                   `gorm:"column:purchase_token;type:varchar(512)" json:"purchase_token"`
	BasePlanID           string                   `gorm:"column:base_plan_id;type:varchar(128)" json:"base_plan_id"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

func (SubscriptionRecord) TableName() string {
	return "subscription_record"
}

func (m *SubscriptionRecord) Record() types.SubscriptionRecord {
	if m == nil {
		return types.Inactive()
	}
	return types.SubscriptionRecord{
		IsActive:             m.IsActive,
		Tier:                 m.Tier,
		Period:               m.Period,
		Status:               m.Status,
		StartTimeMillis:      m.StartTimeMillis,
		ExpiryTimeMillis:     m.ExpiryTimeMillis,
		GracePeriodEndMillis: m.GracePeriodEndMillis,
		AccountHoldEndMillis: m.AccountHoldEndMillis,
		WillAutoRenew:        m.WillAutoRenew,
		ProductID:            m.ProductID,
		PurchaseToken:        m.PurchaseToken,
		BasePlanID:           m.BasePlanID,
	}
}

// NewSubscriptionRecord builds the first row of a user from a merge-write.
func NewSubscriptionRecord(userID string, fields map[string]any) (*SubscriptionRecord, error) {
	r, err := types.RecordFromFields(fields)
	if err != nil {
		return nil, err
	}
	return &SubscriptionRecord{
		UserID:               userID,
		Version:              1,
		IsActive:             r.IsActive,
		Tier:                 r.Tier,
		Period:               r.Period,
		Status:               r.Status,
		StartTimeMillis:      r.StartTimeMillis,
		ExpiryTimeMillis:     r.ExpiryTimeMillis,
		GracePeriodEndMillis: r.GracePeriodEndMillis,
		AccountHoldEndMillis: r.AccountHoldEndMillis,
		WillAutoRenew:        r.WillAutoRenew,
		ProductID:            r.ProductID,
		PurchaseToken:        r.PurchaseToken,
		BasePlanID:           r.BasePlanID,
	}, nil
}
