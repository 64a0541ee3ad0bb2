package apple_iap

import (
	"context"
	"fmt"

	"github.com/awa/go-iap/appstore/api"
)

// SubscriptionStatus is one subscription of the "Get All Subscription Statuses" response.
type SubscriptionStatus struct {
	GroupID               string
	OriginalTransactionID string
	Status                int
	SignedTransactionInfo string
}

// Client wraps the App Store Server API with the calls the ledger makes.
type Client struct {
	api StoreAPI
}

func NewClient(store StoreAPI) *Client {
	return &Client{api: store}
}

// SubscriptionStatuses lists the latest transaction of every subscription in the groups
// the original transaction belongs to.
func (c *Client) SubscriptionStatuses(ctx context.Context, originalTransactionID string) ([]SubscriptionStatus, error) {
	resp, err := c.api.GetALLSubscriptionStatuses(ctx, originalTransactionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription statuses of %s: %w", originalTransactionID, err)
	}
	var out []SubscriptionStatus
	for _, group := range resp.Data {
		for _, last := range group.LastTransactions {
			out = append(out, SubscriptionStatus{
				GroupID:               group.SubscriptionGroupIdentifier,
				OriginalTransactionID: last.OriginalTransactionId,
				Status:                int(last.Status),
				SignedTransactionInfo: last.SignedTransactionInfo,
			})
		}
	}
	return out, nil
}

// SignedTransaction fetches the signed form of one transaction.
func (c *Client) SignedTransaction(ctx context.Context, transactionID string) (string, error) {
	resp, err := c.api.GetTransactionInfo(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("failed to get transaction info: %w", err)
	}
	return resp.SignedTransactionInfo, nil
}

// ParseTransaction verifies and decodes a signed transaction.
func (c *Client) ParseTransaction(signed string) (*api.JWSTransaction, error) {
	txn, err := c.api.ParseSignedTransaction(signed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed transaction: %w", err)
	}
	return txn, nil
}
