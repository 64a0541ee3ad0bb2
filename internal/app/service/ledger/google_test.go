package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/androidpublisher/v3"

	"github.com/fatflowers/entitlements/internal/platform/google/play"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/types"
)

func googlePurchase(state, account string) *androidpublisher.SubscriptionPurchaseV2 {
	return &androidpublisher.SubscriptionPurchaseV2{
		SubscriptionState:    state,
		StartTime:            "2024-01-15T00:00:00Z",
		AcknowledgementState: play.AcknowledgementPending,
		ExternalAccountIdentifiers: &androidpublisher.ExternalAccountIdentifiers{
			ObfuscatedExternalAccountId: account,
		},
		LineItems: []*androidpublisher.SubscriptionPurchaseLineItem{{
			ProductId:        "com.app.plus",
			ExpiryTime:       "2024-05-15T00:00:00Z",
			AutoRenewingPlan: &androidpublisher.AutoRenewingPlan{AutoRenewEnabled: true},
			OfferDetails:     &androidpublisher.OfferDetails{BasePlanId: "p1m"},
		}},
	}
}

func newGoogleProvider(pub *fakePublisher) (*GoogleProvider, *MemoryIndex) {
	cfg := &config.Config{}
	cfg.GooglePlay.PackageName = "com.app"
	cfg.Catalog.Products = []types.ProductDetails{
		{ProductID: "com.app.plus", ProviderID: types.PaymentProviderGoogle, BasePlanID: "p1m", Type: types.ProductTypeAutoRenewable},
	}
	idx := NewMemoryIndex()
	return NewGoogleProvider(zap.NewNop().Sugar(), pub, cfg, idx), idx
}

func TestGoogleVerifyAcknowledgesAndDatesCurrentPeriod(t *testing.T) {
	pub := &fakePublisher{purchase: map[string]*androidpublisher.SubscriptionPurchaseV2{
		"tok": googlePurchase(play.StateActive, "u1"),
	}}
	p, idx := newGoogleProvider(pub)
	ctx := context.Background()

	ent, err := p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", ProviderID: types.PaymentProviderGoogle, PurchaseToken: "tok"})
	require.NoError(t, err)
	require.True(t, ent.Verified)
	require.Equal(t, "p1m", ent.BasePlanID)
	require.Equal(t, "tok", ent.PurchaseToken)
	require.Equal(t, time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC), ent.PurchaseInstant.UTC())
	require.Equal(t, []string{"tok"}, pub.acked)

	row, err := idx.FindByKey(ctx, types.PaymentProviderGoogle, "tok")
	require.NoError(t, err)
	require.Equal(t, "u1", row.UserID)
	require.NotNil(t, row.ProductSnapshot())
}

func TestGoogleVerifyRejectsForeignAccount(t *testing.T) {
	pub := &fakePublisher{purchase: map[string]*androidpublisher.SubscriptionPurchaseV2{
		"tok": googlePurchase(play.StateActive, "someone-else"),
	}}
	p, _ := newGoogleProvider(pub)
	_, err := p.Verify(context.Background(), &types.PurchaseRequest{UserID: "u1", PurchaseToken: "tok"})
	require.ErrorIs(t, err, ErrVerification)
	require.Empty(t, pub.acked)
}

func TestGoogleVerifyRejectsInactiveState(t *testing.T) {
	pub := &fakePublisher{purchase: map[string]*androidpublisher.SubscriptionPurchaseV2{
		"tok": googlePurchase(play.StateExpired, "u1"),
	}}
	p, _ := newGoogleProvider(pub)
	_, err := p.Verify(context.Background(), &types.PurchaseRequest{UserID: "u1", PurchaseToken: "tok"})
	require.ErrorIs(t, err, ErrVerification)
}

func TestGoogleCurrentEntitlementsFollowsState(t *testing.T) {
	pub := &fakePublisher{purchase: map[string]*androidpublisher.SubscriptionPurchaseV2{
		"tok": googlePurchase(play.StateActive, "u1"),
	}}
	p, _ := newGoogleProvider(pub)
	ctx := context.Background()
	_, err := p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", PurchaseToken: "tok"})
	require.NoError(t, err)

	ents, err := p.CurrentEntitlements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	require.Equal(t, "com.app.plus", ents[0].ProductID)

	pub.mu.Lock()
	pub.purchase["tok"] = googlePurchase(play.StateOnHold, "u1")
	pub.mu.Unlock()
	ents, err = p.CurrentEntitlements(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, ents)
}

func TestGoogleLinkedPurchaseIsRetired(t *testing.T) {
	upgraded := googlePurchase(play.StateActive, "u1")
	upgraded.LinkedPurchaseToken = "old"
	pub := &fakePublisher{purchase: map[string]*androidpublisher.SubscriptionPurchaseV2{
		"old": googlePurchase(play.StateActive, "u1"),
		"new": upgraded,
	}}
	p, idx := newGoogleProvider(pub)
	ctx := context.Background()
	_, err := p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", PurchaseToken: "old"})
	require.NoError(t, err)
	_, err = p.Verify(ctx, &types.PurchaseRequest{UserID: "u1", PurchaseToken: "new"})
	require.NoError(t, err)

	rows, err := idx.ListByUser(ctx, "u1", types.PaymentProviderGoogle)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "new", rows[0].SubscriptionKey)
}
