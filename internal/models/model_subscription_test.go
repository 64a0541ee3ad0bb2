package models

import (
	"testing"

	"github.com/fatflowers/entitlements/pkg/types"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNewSubscriptionRecord_FromFields(t *testing.T) {
	rec := types.SubscriptionRecord{
		IsActive:         true,
		Tier:             types.TierPlus,
		Period:           types.PeriodMonthly,
		Status:           types.SubscriptionStatusActive,
		ExpiryTimeMillis: 1700000000000,
		ProductID:        "com.app.plus_monthly",
	}
	row, err := NewSubscriptionRecord("u1", rec.Fields())
	require.NoError(t, err)
	require.Equal(t, "u1", row.UserID)
	require.Equal(t, int64(1), row.Version)
	require.Equal(t, rec, row.Record())
}

func TestSubscriptionRecord_NilIsInactive(t *testing.T) {
	var row *SubscriptionRecord
	require.Equal(t, types.Inactive(), row.Record())
}

func TestLedgerTransaction_ProductSnapshot(t *testing.T) {
	var tx *LedgerTransaction
	require.Nil(t, tx.ProductSnapshot())
	require.False(t, tx.Revoked())

	tx = &LedgerTransaction{Extra: datatypes.NewJSONType(&LedgerTransactionExtra{
		ProductSnapshot: &types.ProductDetails{ProductID: "com.app.pro_yearly"},
	})}
	require.Equal(t, "com.app.pro_yearly", tx.ProductSnapshot().ProductID)
}
