package models

import (
	"time"

	"github.com/fatflowers/entitlements/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionLog records every change of a user's authoritative record.
// Use case: troubleshooting.
type SubscriptionLog struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);index:idx_subscription_log_user_id_id,priority:1;not null" json:"user_id"`
	// Reason is what triggered the reconciliation.
	Reason types.SubscriptionChangeReason                `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	Before datatypes.JSONType[*types.SubscriptionRecord] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	After  datatypes.JSONType[*types.SubscriptionRecord] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	// Extra stores trigger details such as the transaction id or the remote write error.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
