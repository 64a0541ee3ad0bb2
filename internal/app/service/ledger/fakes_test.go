package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/awa/go-iap/appstore/api"
	"google.golang.org/api/androidpublisher/v3"

	"github.com/fatflowers/entitlements/internal/platform/apple/apple_iap"
	"github.com/fatflowers/entitlements/pkg/types"
)

type fakeApple struct {
	statuses map[string][]apple_iap.SubscriptionStatus
	signed   map[string]string
	txns     map[string]*api.JWSTransaction
	err      error

	statusCalls map[string]int
}

func newFakeApple() *fakeApple {
	return &fakeApple{
		statuses: map[string][]apple_iap.SubscriptionStatus{},
		signed:   map[string]string{},
		txns:     map[string]*api.JWSTransaction{},

		statusCalls: map[string]int{},
	}
}

func (f *fakeApple) SubscriptionStatuses(_ context.Context, originalTransactionID string) ([]apple_iap.SubscriptionStatus, error) {
	f.statusCalls[originalTransactionID]++
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses[originalTransactionID], nil
}

func (f *fakeApple) SignedTransaction(_ context.Context, transactionID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	s, ok := f.signed[transactionID]
	if !ok {
		return "", errors.New("transaction not found")
	}
	return s, nil
}

func (f *fakeApple) ParseTransaction(signed string) (*api.JWSTransaction, error) {
	txn, ok := f.txns[signed]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return txn, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	purchase map[string]*androidpublisher.SubscriptionPurchaseV2
	acked    []string
	err      error
}

func (f *fakePublisher) VerifySubscriptionV2(_ context.Context, _ string, token string) (*androidpublisher.SubscriptionPurchaseV2, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.purchase[token]
	if !ok {
		return nil, errors.New("purchase not found")
	}
	return p, nil
}

func (f *fakePublisher) AcknowledgeSubscription(_ context.Context, _, _, token string, _ *androidpublisher.SubscriptionPurchasesAcknowledgeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, token)
	return nil
}

type stubProvider struct {
	id    types.PaymentProvider
	ents  []types.Entitlement
	err   error
	verif func(*types.PurchaseRequest) (*types.Entitlement, error)
}

func (s *stubProvider) ID() types.PaymentProvider { return s.id }

func (s *stubProvider) CurrentEntitlements(context.Context, string) ([]types.Entitlement, error) {
	return s.ents, s.err
}

func (s *stubProvider) Verify(_ context.Context, req *types.PurchaseRequest) (*types.Entitlement, error) {
	return s.verif(req)
}
