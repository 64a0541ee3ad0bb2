package play

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/androidpublisher/v3"
)

func TestFlatten_PicksLatestLineItem(t *testing.T) {
	s, err := Flatten(&androidpublisher.SubscriptionPurchaseV2{
		SubscriptionState:    StateActive,
		StartTime:            "2024-05-01T10:00:00.123Z",
		AcknowledgementState: AcknowledgementPending,
		ExternalAccountIdentifiers: &androidpublisher.ExternalAccountIdentifiers{
			ObfuscatedExternalAccountId: "u1",
		},
		LineItems: []*androidpublisher.SubscriptionPurchaseLineItem{
			{ProductId: "lite", ExpiryTime: "2024-06-01T10:00:00Z"},
			{
				ProductId:        "plus",
				ExpiryTime:       "2024-07-01T10:00:00Z",
				AutoRenewingPlan: &androidpublisher.AutoRenewingPlan{AutoRenewEnabled: true},
				OfferDetails:     &androidpublisher.OfferDetails{BasePlanId: "plus-p1m"},
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "plus", s.ProductID)
	require.Equal(t, "plus-p1m", s.BasePlanID)
	require.True(t, s.AutoRenewing)
	require.False(t, s.Acknowledged)
	require.Equal(t, "u1", s.AccountID)
	require.Equal(t, time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC), s.ExpiryTime.UTC())
	require.Equal(t, 123*time.Millisecond, time.Duration(s.StartTime.Nanosecond()))
}

func TestFlatten_RejectsBadTimes(t *testing.T) {
	_, err := Flatten(&androidpublisher.SubscriptionPurchaseV2{StartTime: "yesterday"})
	require.Error(t, err)

	_, err = Flatten(nil)
	require.Error(t, err)
}

func TestStateHoldsEntitlement(t *testing.T) {
	require.True(t, StateHoldsEntitlement(StateActive))
	require.True(t, StateHoldsEntitlement(StateInGracePeriod))
	require.True(t, StateHoldsEntitlement(StateCanceled))
	require.False(t, StateHoldsEntitlement(StateOnHold))
	require.False(t, StateHoldsEntitlement(StatePaused))
	require.False(t, StateHoldsEntitlement(StateExpired))
	require.False(t, StateHoldsEntitlement(StatePending))
}

func TestDecodePush(t *testing.T) {
	body := `{"version":"1.0","packageName":"com.app","eventTimeMillis":"1717243200000",` +
		`"subscriptionNotification":{"version":"1.0","notificationType":6,"purchaseToken":"tok","subscriptionId":"plus"}}`
	var req PushRequest
	req.Message.Data = base64.StdEncoding.EncodeToString([]byte(body))

	n, err := DecodePush(&req)
	require.NoError(t, err)
	require.False(t, n.IsTest())
	require.NotNil(t, n.SubscriptionNotification)
	require.Equal(t, NotificationGracePeriod, n.SubscriptionNotification.NotificationType)
	require.Equal(t, "tok", n.SubscriptionNotification.PurchaseToken)
	require.Equal(t, int64(1717243200000), n.EventTime().UnixMilli())

	req.Message.Data = "%%%"
	_, err = DecodePush(&req)
	require.Error(t, err)
}
