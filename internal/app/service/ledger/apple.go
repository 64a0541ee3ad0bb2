package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/awa/go-iap/appstore/api"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlements/pkg/config"
	"github.com/fatflowers/entitlements/pkg/logctx"
	"github.com/fatflowers/entitlements/pkg/types"
)

// AppleAPI is what the Apple provider needs from the App Store Server API.
type AppleAPI interface {
	SubscriptionStatuses(ctx context.Context, originalTransactionID string) ([]apple_iap.SubscriptionStatus, error)
	SignedTransaction(ctx context.Context, transactionID string) (string, error)
	ParseTransaction(signed string) (*api.JWSTransaction, error)
}

var _ AppleAPI = (*apple_iap.Client)(nil)

type AppleProvider struct {
	log   *zap.SugaredLogger
	api   AppleAPI
	cfg   *config.Config
	index Index
}

func NewAppleProvider(l *zap.SugaredLogger, client AppleAPI, cfg *config.Config, index Index) *AppleProvider {
	return &AppleProvider{log: l, api: client, cfg: cfg, index: index}
}

func (a *AppleProvider) ID() types.PaymentProvider { return types.PaymentProviderApple }

// CurrentEntitlements asks Apple about every subscription remembered for the user and
// returns the latest transaction of those still granting service.
func (a *AppleProvider) CurrentEntitlements(ctx context.Context, userID string) ([]types.Entitlement, error) {
	rows, err := a.index.ListByUser(ctx, userID, types.PaymentProviderApple)
	if err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, a.log)
	seen := map[string]struct{}{}
	var out []types.Entitlement
	for _, row := range rows {
		if _, ok := seen[row.SubscriptionKey]; ok {
			continue
		}
		statuses, err := a.api.SubscriptionStatuses(ctx, row.SubscriptionKey)
		if err != nil {
			return nil, err
		}
		for _, st := range statuses {
			if _, ok := seen[st.OriginalTransactionID]; ok {
				continue
			}
			seen[st.OriginalTransactionID] = struct{}{}
			if !apple_iap.StatusHoldsEntitlement(st.Status) {
				continue
			}
			txn, err := a.api.ParseTransaction(st.SignedTransactionInfo)
			if err != nil {
				log.Warnw("dropping unverifiable apple transaction", "original_transaction_id", st.OriginalTransactionID, "err", err)
				out = append(out, types.Entitlement{
					ProviderID:    types.PaymentProviderApple,
					ProductID:     row.ProductID,
					TransactionID: st.OriginalTransactionID,
					ProductType:   types.ProductTypeAutoRenewable,
				})
				continue
			}
			ent := a.entitlement(txn)
			if err := a.check(txn, userID); err != nil {
				log.Warnw("apple transaction failed verification", "transaction_id", txn.TransactionID, "err", err)
				ent.Verified = false
			}
			out = append(out, ent)
		}
		seen[row.SubscriptionKey] = struct{}{}
	}
	return out, nil
}

func (a *AppleProvider) entitlement(txn *api.JWSTransaction) types.Entitlement {
	productType := types.ProductTypeAutoRenewable
	if txn.Type != api.AutoRenewable {
		productType = types.ProductTypeNonRenewable
	}
	return types.Entitlement{
		ProviderID:      types.PaymentProviderApple,
		ProductID:       txn.ProductID,
		PurchaseInstant: time.UnixMilli(int64(txn.PurchaseDate)),
		TransactionID:   txn.TransactionID,
		ProductType:     productType,
		Verified:        true,
	}
}

// check applies the rules a transaction must pass before it counts for userID.
func (a *AppleProvider) check(txn *api.JWSTransaction, userID string) error {
	if a.cfg.AppleIAP.IsProd && txn.Environment != api.Production {
		return fmt.Errorf("%w: transaction is not in production environment", ErrVerification)
	}
	if txn.Type != api.AutoRenewable {
		return fmt.Errorf("%w: unsupported transaction type %s", ErrVerification, txn.Type)
	}
	if txn.RevocationDate > 0 {
		return fmt.Errorf("%w: transaction %s was revoked", ErrVerification, txn.TransactionID)
	}
	if txn.AppAccountToken != "" {
		owner, err := apple_iap.UUIDToUserID(txn.AppAccountToken)
		if err != nil {
			return fmt.Errorf("%w: invalid app account token: %v", ErrVerification, err)
		}
		if owner != userID {
			return fmt.Errorf("%w: transaction belongs to another user", ErrVerification)
		}
	}
	return nil
}

func (a *AppleProvider) Verify(ctx context.Context, req *types.PurchaseRequest) (*types.Entitlement, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is empty", ErrVerification)
	}
	signed, err := a.api.SignedTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	txn, err := a.api.ParseTransaction(signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if err := a.check(txn, req.UserID); err != nil {
		return nil, err
	}

	key := txn.OriginalTransactionId
	if key == "" {
		key = txn.TransactionID
	}
	extra := &models.LedgerTransactionExtra{Environment: string(txn.Environment)}
	if p, err := a.cfg.GetProductByProvider(types.PaymentProviderApple, txn.ProductID, ""); err == nil {
		extra.ProductSnapshot = p
	} else {
		logctx.FromCtx(ctx, a.log).Warnw("apple product missing from catalog", "product_id", txn.ProductID)
	}
	row := &models.LedgerTransaction{
		UserID:              req.UserID,
		ProviderID:          types.PaymentProviderApple,
		SubscriptionKey:     key,
		LatestTransactionID: txn.TransactionID,
		ProductID:           txn.ProductID,
		PurchaseAt:          time.UnixMilli(int64(txn.PurchaseDate)),
		Extra:               datatypes.NewJSONType(extra),
	}
	if txn.ExpiresDate > 0 {
		row.ExpireAt = lo.ToPtr(time.UnixMilli(int64(txn.ExpiresDate)))
	}
	if err := a.index.Remember(ctx, row); err != nil {
		return nil, err
	}

	ent := a.entitlement(txn)
	return &ent, nil
}
