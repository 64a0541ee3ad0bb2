package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"google.golang.org/api/androidpublisher/v3"
	"gorm.io/datatypes"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/internal/platform/google/play"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/period"
	"github.com/fatflowers/entitlements/pkg/product"
	"github.com/fatflowers/entitlements/pkg/types"
)

type GoogleProvider struct {
	log         *zap.SugaredLogger
	api         play.PublisherAPI
	cfg         *config.Config
	index       Index
	packageName string
}

func NewGoogleProvider(l *zap.SugaredLogger, client play.PublisherAPI, cfg *config.Config, index Index) *GoogleProvider {
	return &GoogleProvider{log: l, api: client, cfg: cfg, index: index, packageName: cfg.GooglePlay.PackageName}
}

func (g *GoogleProvider) ID() types.PaymentProvider { return types.PaymentProviderGoogle }

func (g *GoogleProvider) fetch(ctx context.Context, token string) (*play.Subscription, error) {
	purchase, err := g.api.VerifySubscriptionV2(ctx, g.packageName, token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify google subscription: %w", err)
	}
	sub, err := play.Flatten(purchase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return sub, nil
}

// entitlement dates the purchase at the start of the current billing period so that
// expiry math on the purchase instant lands on the store's renewal boundary.
func (g *GoogleProvider) entitlement(sub *play.Subscription, token string) types.Entitlement {
	_, per := product.ParseWithBasePlan(sub.ProductID, sub.BasePlanID)
	start := period.CurrentPeriodStart(sub.StartTime.UnixMilli(), sub.ExpiryTime.UnixMilli(), per)
	return types.Entitlement{
		ProviderID:      types.PaymentProviderGoogle,
		ProductID:       sub.ProductID,
		PurchaseInstant: time.UnixMilli(start),
		TransactionID:   token,
		ProductType:     types.ProductTypeAutoRenewable,
		Verified:        true,
		PurchaseToken:   token,
		BasePlanID:      sub.BasePlanID,
	}
}

func (g *GoogleProvider) check(sub *play.Subscription, userID string) error {
	if !sub.LineItemsPresent {
		return fmt.Errorf("%w: subscription has no line items", ErrVerification)
	}
	if sub.AccountID != "" && sub.AccountID != userID {
		return fmt.Errorf("%w: subscription belongs to another account", ErrVerification)
	}
	return nil
}

func (g *GoogleProvider) CurrentEntitlements(ctx context.Context, userID string) ([]types.Entitlement, error) {
	rows, err := g.index.ListByUser(ctx, userID, types.PaymentProviderGoogle)
	if err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, g.log)
	var out []types.Entitlement
	for _, row := range rows {
		sub, err := g.fetch(ctx, row.SubscriptionKey)
		if err != nil {
			return nil, err
		}
		if !play.StateHoldsEntitlement(sub.State) {
			continue
		}
		ent := g.entitlement(sub, row.SubscriptionKey)
		if err := g.check(sub, userID); err != nil {
			log.Warnw("google subscription failed verification", "product_id", sub.ProductID, "err", err)
			ent.Verified = false
		}
		out = append(out, ent)
	}
	return out, nil
}

func (g *GoogleProvider) Verify(ctx context.Context, req *types.PurchaseRequest) (*types.Entitlement, error) {
	if req.PurchaseToken == "" {
		return nil, fmt.Errorf("%w: purchase token is empty", ErrVerification)
	}
	sub, err := g.fetch(ctx, req.PurchaseToken)
	if err != nil {
		return nil, err
	}
	if err := g.check(sub, req.UserID); err != nil {
		return nil, err
	}
	if !play.StateHoldsEntitlement(sub.State) {
		return nil, fmt.Errorf("%w: subscription state %s grants no access", ErrVerification, sub.State)
	}

	log := logctx.FromCtx(ctx, g.log)
	if !sub.Acknowledged {
		err := g.api.AcknowledgeSubscription(ctx, g.packageName, sub.ProductID, req.PurchaseToken,
			&androidpublisher.SubscriptionPurchasesAcknowledgeRequest{DeveloperPayload: req.UserID})
		if err != nil {
			// unacknowledged purchases are refunded by Google after three days; the next
			// verification retries
			log.Warnw("failed to acknowledge google subscription", "product_id", sub.ProductID, "err", err)
		}
	}

	extra := &models.LedgerTransactionExtra{}
	if p, err := g.cfg.GetProductByProvider(types.PaymentProviderGoogle, sub.ProductID, sub.BasePlanID); err == nil {
		extra.ProductSnapshot = p
	} else {
		log.Warnw("google product missing from catalog", "product_id", sub.ProductID, "base_plan_id", sub.BasePlanID)
	}
	ent := g.entitlement(sub, req.PurchaseToken)
	row := &models.LedgerTransaction{
		UserID:              req.UserID,
		ProviderID:          types.PaymentProviderGoogle,
		SubscriptionKey:     req.PurchaseToken,
		LatestTransactionID: req.PurchaseToken,
		ProductID:           sub.ProductID,
		BasePlanID:          sub.BasePlanID,
		PurchaseAt:          ent.PurchaseInstant,
		Extra:               datatypes.NewJSONType(extra),
	}
	if !sub.ExpiryTime.IsZero() {
		row.ExpireAt = lo.ToPtr(sub.ExpiryTime)
	}
	if err := g.index.Remember(ctx, row); err != nil {
		return nil, err
	}
	if sub.LinkedToken != "" {
		// upgrades and downgrades replace the linked purchase
		if err := g.index.MarkRevoked(ctx, types.PaymentProviderGoogle, sub.LinkedToken, time.Now()); err != nil {
			log.Warnw("failed to retire linked purchase", "err", err)
		}
	}
	return &ent, nil
}
