package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/awa/go-iap/appstore/api"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/types"
)

// 2024-03-10T08:00Z and one month later
const (
	purchasedAtMillis = 1710057600000
	expiresAtMillis   = 1712736000000
)

func appleTxn(t *testing.T, id, original, productID, owner string) *api.JWSTransaction {
	t.Helper()
	token, err := apple_iap.UserIDToUUID(owner)
	require.NoError(t, err)
	return &api.JWSTransaction{
		TransactionID:         id,
		OriginalTransactionId: original,
		ProductID:             productID,
		PurchaseDate:          purchasedAtMillis,
		ExpiresDate:           expiresAtMillis,
		Type:                  api.AutoRenewable,
		Environment:           api.Production,
		AppAccountToken:       token,
	}
}

func newAppleProvider(fake *fakeApple) (*AppleProvider, *MemoryIndex) {
	cfg := &config.Config{}
	cfg.AppleIAP.IsProd = true
	cfg.Catalog.Products = []types.ProductDetails{
		{ProductID: "com.app.plus_monthly", ProviderID: types.PaymentProviderApple, Type: types.ProductTypeAutoRenewable},
	}
	idx := NewMemoryIndex()
	return NewAppleProvider(zap.NewNop().Sugar(), fake, cfg, idx), idx
}

func TestAppleVerifyRemembersOriginalTransaction(t *testing.T) {
	fake := newFakeApple()
	fake.signed["t1"] = "jws-t1"
	fake.txns["jws-t1"] = appleTxn(t, "t1", "o1", "com.app.plus_monthly", "u1")
	p, idx := newAppleProvider(fake)
	ctx := context.Background()

	ent, err := p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", ProviderID: types.PaymentProviderApple, TransactionID: "t1"})
	require.NoError(t, err)
	require.True(t, ent.Verified)
	require.Equal(t, "com.app.plus_monthly", ent.ProductID)
	require.Equal(t, int64(purchasedAtMillis), ent.PurchaseInstant.UnixMilli())
	require.Equal(t, types.ProductTypeAutoRenewable, ent.ProductType)

	row, err := idx.FindByKey(ctx, types.PaymentProviderApple, "o1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "u1", row.UserID)
	require.Equal(t, "t1", row.LatestTransactionID)
	require.NotNil(t, row.ProductSnapshot())
	require.NotNil(t, row.ExpireAt)
}

func TestAppleVerifyRejects(t *testing.T) {
	cases := map[string]func(*api.JWSTransaction){
		"other user": func(txn *api.JWSTransaction) {
			txn.AppAccountToken, _ = apple_iap.UserIDToUUID("someone-else")
		},
		"sandbox in prod": func(txn *api.JWSTransaction) { txn.Environment = api.Sandbox },
		"non renewable":   func(txn *api.JWSTransaction) { txn.Type = api.NonRenewable },
		"revoked":         func(txn *api.JWSTransaction) { txn.RevocationDate = purchasedAtMillis },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fake := newFakeApple()
			txn := appleTxn(t, "t1", "o1", "com.app.plus_monthly", "u1")
			mutate(txn)
			fake.signed["t1"] = "jws-t1"
			fake.txns["jws-t1"] = txn
			p, idx := newAppleProvider(fake)

			_, err := p.Verify(context.Background(), &types.PurchaseRequest{UserID: "u1", TransactionID: "t1"})
			require.ErrorIs(t, err, ErrVerification)
			row, _ := idx.FindByKey(context.Background(), types.PaymentProviderApple, "o1")
			require.Nil(t, row)
		})
	}
}

func TestAppleVerifyTransportErrorIsNotVerificationFailure(t *testing.T) {
	fake := newFakeApple()
	fake.err = errors.New("connection reset")
	p, _ := newAppleProvider(fake)
	_, err := p.Verify(context.Background(), &types.PurchaseRequest{UserID: "u1", TransactionID: "t1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrVerification)
}

func TestAppleCurrentEntitlements(t *testing.T) {
	fake := newFakeApple()
	fake.signed["t1"] = "jws-t1"
	fake.txns["jws-t1"] = appleTxn(t, "t1", "o1", "com.app.plus_monthly", "u1")
	fake.txns["jws-t2"] = appleTxn(t, "t2", "o1", "com.app.plus_monthly", "u1")
	fake.txns["jws-t9"] = appleTxn(t, "t9", "o2", "com.app.pro_monthly", "u1")
	fake.statuses["o1"] = []apple_iap.SubscriptionStatus{
		{OriginalTransactionID: "o1", Status: apple_iap.StatusActive, SignedTransactionInfo: "jws-t2"},
		{OriginalTransactionID: "o2", Status: apple_iap.StatusExpired, SignedTransactionInfo: "jws-t9"},
		{OriginalTransactionID: "o3", Status: apple_iap.StatusGracePeriod, SignedTransactionInfo: "garbage"},
	}
	p, _ := newAppleProvider(fake)
	ctx := context.Background()
	_, err := p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", TransactionID: "t1"})
	require.NoError(t, err)

	ents, err := p.CurrentEntitlements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ents, 2)
	require.Equal(t, "t2", ents[0].TransactionID)
	require.True(t, ents[0].Verified)
	require.False(t, ents[1].Verified, "unparseable transactions are reported unverified")

	none, err := p.CurrentEntitlements(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAppleCurrentEntitlementsPropagatesErrors(t *testing.T) {
	fake := newFakeApple()
	fake.signed["t1"] = "jws-t1"
	fake.txns["jws-t1"] = appleTxn(t, "t1", "o1", "com.app.plus_monthly", "u1")
	p, _ := newAppleProvider(fake)
	_, err := p.Verify(context.Background(), &types.PurchaseRequest{UserID: "u1", TransactionID: "t1"})
	require.NoError(t, err)

	fake.err = errors.New("503")
	_, err = p.CurrentEntitlements(context.Background(), "u1")
	require.Error(t, err)
}

// duplicateRowsIndex lists every row twice, as a store without a unique key would.
type duplicateRowsIndex struct {
	*MemoryIndex
}

func (d duplicateRowsIndex) ListByUser(ctx context.Context, userID string, provider types.PaymentProvider) ([]*models.LedgerTransaction, error) {
	rows, err := d.MemoryIndex.ListByUser(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	return append(rows, rows...), nil
}

func TestAppleCurrentEntitlementsQueriesEachKeyOnce(t *testing.T) {
	fake := newFakeApple()
	p, idx := newAppleProvider(fake)
	p.index = duplicateRowsIndex{idx}
	ctx := context.Background()
	require.NoError(t, idx.Remember(ctx, &models.LedgerTransaction{
		UserID:          "u1",
		ProviderID:      types.PaymentProviderApple,
		SubscriptionKey: "o1",
		ProductID:       "com.app.plus_monthly",
	}))

	ents, err := p.CurrentEntitlements(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, ents)
	require.Equal(t, 1, fake.statusCalls["o1"], "apple returned no statuses for o1 yet it was queried again")
}
