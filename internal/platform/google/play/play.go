package play

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awa/go-iap/playstore"
	"google.golang.org/api/androidpublisher/v3"
)

var ErrNotConfigured = errors.New("google play credentials are not configured")

// PublisherAPI is the part of the Android Publisher client the ledger uses.
type PublisherAPI interface {
	VerifySubscriptionV2(ctx context.Context, packageName, token string) (*androidpublisher.SubscriptionPurchaseV2, error)
	AcknowledgeSubscription(ctx context.Context, packageName, subscriptionID, token string, req *androidpublisher.SubscriptionPurchasesAcknowledgeRequest) error
}

var _ PublisherAPI = (*playstore.Client)(nil)

// NewPublisher builds an Android Publisher client from a service account key.
func NewPublisher(serviceAccountJSON string) (*playstore.Client, error) {
	if serviceAccountJSON == "" {
		return nil, ErrNotConfigured
	}
	client, err := playstore.New([]byte(serviceAccountJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to init google play client: %w", err)
	}
	return client, nil
}

// Subscription states of SubscriptionPurchaseV2.
const (
	StateActive        = "SUBSCRIPTION_STATE_ACTIVE"
	StateCanceled      = "SUBSCRIPTION_STATE_CANCELED"
	StateInGracePeriod = "SUBSCRIPTION_STATE_IN_GRACE_PERIOD"
	StateOnHold        = "SUBSCRIPTION_STATE_ON_HOLD"
	StatePaused        = "SUBSCRIPTION_STATE_PAUSED"
	StateExpired       = "SUBSCRIPTION_STATE_EXPIRED"
	StatePending       = "SUBSCRIPTION_STATE_PENDING"

	AcknowledgementPending = "ACKNOWLEDGEMENT_STATE_PENDING"
)

// StateHoldsEntitlement reports whether Google Play still grants service in the state.
// Canceled subscriptions keep access until their line item expires.
func StateHoldsEntitlement(state string) bool {
	switch state {
	case StateActive, StateInGracePeriod, StateCanceled:
		return true
	}
	return false
}

// Subscription is the flattened view of a SubscriptionPurchaseV2.
type Subscription struct {
	State            string
	ProductID        string
	BasePlanID       string
	StartTime        time.Time
	ExpiryTime       time.Time
	AutoRenewing     bool
	Acknowledged     bool
	AccountID        string
	LinkedToken      string
	LineItemsPresent bool
}

// Flatten picks the line item with the latest expiry; multi-line subscriptions are add-ons
// of the same plan.
func Flatten(p *androidpublisher.SubscriptionPurchaseV2) (*Subscription, error) {
	if p == nil {
		return nil, errors.New("empty subscription purchase")
	}
	s := &Subscription{
		State:        p.SubscriptionState,
		Acknowledged: p.AcknowledgementState != AcknowledgementPending,
		LinkedToken:  p.LinkedPurchaseToken,
	}
	if p.ExternalAccountIdentifiers != nil {
		s.AccountID = p.ExternalAccountIdentifiers.ObfuscatedExternalAccountId
	}
	if p.StartTime != "" {
		t, err := time.Parse(time.RFC3339Nano, p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", p.StartTime, err)
		}
		s.StartTime = t
	}
	for _, item := range p.LineItems {
		if item == nil {
			continue
		}
		var expiry time.Time
		if item.ExpiryTime != "" {
			t, err := time.Parse(time.RFC3339Nano, item.ExpiryTime)
			if err != nil {
				return nil, fmt.Errorf("invalid expiry time %q: %w", item.ExpiryTime, err)
			}
			expiry = t
		}
		if s.LineItemsPresent && !expiry.After(s.ExpiryTime) {
			continue
		}
		s.LineItemsPresent = true
		s.ProductID = item.ProductId
		s.ExpiryTime = expiry
		s.AutoRenewing = item.AutoRenewingPlan != nil && item.AutoRenewingPlan.AutoRenewEnabled
		s.BasePlanID = ""
		if item.OfferDetails != nil {
			s.BasePlanID = item.OfferDetails.BasePlanId
		}
	}
	return s, nil
}
