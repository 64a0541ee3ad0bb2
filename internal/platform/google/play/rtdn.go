package play

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/awa/go-iap/playstore"
)

// Subscription notification types of real-time developer notifications.
const (
	NotificationRecovered   playstore.SubscriptionNotificationType = 1
	NotificationRenewed     playstore.SubscriptionNotificationType = 2
	NotificationCanceled    playstore.SubscriptionNotificationType = 3
	NotificationPurchased   playstore.SubscriptionNotificationType = 4
	NotificationAccountHold playstore.SubscriptionNotificationType = 5
	NotificationGracePeriod playstore.SubscriptionNotificationType = 6
	NotificationRestarted   playstore.SubscriptionNotificationType = 7
	NotificationPaused      playstore.SubscriptionNotificationType = 10
	NotificationRevoked     playstore.SubscriptionNotificationType = 12
	NotificationExpired     playstore.SubscriptionNotificationType = 13
)

// PushRequest is the Pub/Sub push envelope carrying a real-time developer notification.
type PushRequest struct {
	Message struct {
		Data        string            `json:"data"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"message" binding:"required"`
	Subscription string `json:"subscription"`
}

type SubscriptionNotification struct {
	Version          string                                 `json:"version"`
	NotificationType playstore.SubscriptionNotificationType `json:"notificationType"`
	PurchaseToken    string                                 `json:"purchaseToken"`
	SubscriptionID   string                                 `json:"subscriptionId"`
}

// DeveloperNotification is the decoded RTDN payload. Only subscription notifications are acted on.
type DeveloperNotification struct {
	Version                  string                    `json:"version"`
	PackageName              string                    `json:"packageName"`
	EventTimeMillis          string                    `json:"eventTimeMillis"`
	SubscriptionNotification *SubscriptionNotification `json:"subscriptionNotification,omitempty"`
	TestNotification         *struct {
		Version string `json:"version"`
	} `json:"testNotification,omitempty"`
}

func (n *DeveloperNotification) EventTime() time.Time {
	ms, err := strconv.ParseInt(n.EventTimeMillis, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (n *DeveloperNotification) IsTest() bool {
	return n.TestNotification != nil
}

func DecodePush(req *PushRequest) (*DeveloperNotification, error) {
	raw, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid pubsub message data: %w", err)
	}
	var n DeveloperNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("invalid developer notification: %w", err)
	}
	return &n, nil
}
