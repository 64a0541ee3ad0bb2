package apple_iap

import (
	"context"
	"errors"
	"net/url"

	"github.com/awa/go-iap/appstore/api"
)

type GetAppleIAPClientOptions struct {
	KeyID      string
	KeyContent string
	BundleID   string
	Issuer     string
	Sandbox    bool
}

// Configured reports whether enough credentials are present to call the App Store Server API.
func (o *GetAppleIAPClientOptions) Configured() bool {
	return o != nil && o.KeyID != "" && o.KeyContent != "" && o.Issuer != "" && o.BundleID != ""
}

// StoreAPI is the part of the App Store Server API client the ledger uses.
type StoreAPI interface {
	GetTransactionInfo(ctx context.Context, transactionID string) (*api.TransactionInfoResponse, error)
	GetALLSubscriptionStatuses(ctx context.Context, originalTransactionID string, query *url.Values) (*api.StatusResponse, error)
	ParseSignedTransaction(signed string) (*api.JWSTransaction, error)
}

var _ StoreAPI = (*api.StoreClient)(nil)

func GetAppleIAPClient(ctx context.Context, opts *GetAppleIAPClientOptions) (*api.StoreClient, error) {
	if opts == nil {
		return nil, errors.New("opts is nil")
	}
	if !opts.Configured() {
		return nil, errors.New("apple iap credentials are not configured")
	}

	c := &api.StoreConfig{
		KeyContent: []byte(opts.KeyContent),
		KeyID:      opts.KeyID,
		BundleID:   opts.BundleID,
		Issuer:     opts.Issuer,
		Sandbox:    opts.Sandbox,
	}

	return api.NewStoreClient(c), nil
}

// Subscription status values of the App Store Server API "Get All Subscription Statuses" endpoint.
const (
	StatusActive       = 1
	StatusExpired      = 2
	StatusBillingRetry = 3
	StatusGracePeriod  = 4
	StatusRevoked      = 5
)

// StatusHoldsEntitlement reports whether Apple still grants service for the status.
func StatusHoldsEntitlement(status int) bool {
	return status == StatusActive || status == StatusGracePeriod
}
