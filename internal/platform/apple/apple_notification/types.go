package apple_notification

import "github.com/golang-jwt/jwt"

// AppStoreServerRequest is the body Apple posts to the server notification endpoint.
type AppStoreServerRequest struct {
	SignedPayload string `json:"signedPayload" binding:"required"`
}

type NotificationHeader struct {
	Alg string   `json:"alg"`
	X5c []string `json:"x5c"`
}

// Notification types (App Store Server Notifications V2) the service reacts to.
const (
	TypeSubscribed             = "SUBSCRIBED"
	TypeDidRenew               = "DID_RENEW"
	TypeDidChangeRenewalPref   = "DID_CHANGE_RENEWAL_PREF"
	TypeDidChangeRenewalStatus = "DID_CHANGE_RENEWAL_STATUS"
	TypeDidFailToRenew         = "DID_FAIL_TO_RENEW"
	TypeGracePeriodExpired     = "GRACE_PERIOD_EXPIRED"
	TypeExpired                = "EXPIRED"
	TypeRefund                 = "REFUND"
	TypeRevoke                 = "REVOKE"
	TypeTest                   = "TEST"

	SubtypeGracePeriod     = "GRACE_PERIOD"
	SubtypeBillingRecovery = "BILLING_RECOVERY"
)

type NotificationData struct {
	AppAppleID            int64  `json:"appAppleId"`
	BundleID              string `json:"bundleId"`
	BundleVersion         string `json:"bundleVersion"`
	Environment           string `json:"environment"`
	SignedTransactionInfo string `json:"signedTransactionInfo"`
	SignedRenewalInfo     string `json:"signedRenewalInfo"`
	Status                int    `json:"status"`
}

type NotificationPayload struct {
	jwt.StandardClaims
	NotificationType string           `json:"notificationType"`
	Subtype          string           `json:"subtype"`
	NotificationUUID string           `json:"notificationUUID"`
	Version          string           `json:"version"`
	SignedDate       int64            `json:"signedDate"`
	Data             NotificationData `json:"data"`
}

type TransactionInfo struct {
	jwt.StandardClaims
	TransactionId               string `json:"transactionId"`
	OriginalTransactionId       string `json:"originalTransactionId"`
	BundleId                    string `json:"bundleId"`
	ProductId                   string `json:"productId"`
	SubscriptionGroupIdentifier string `json:"subscriptionGroupIdentifier"`
	PurchaseDate                int64  `json:"purchaseDate"`
	OriginalPurchaseDate        int64  `json:"originalPurchaseDate"`
	ExpiresDate                 int64  `json:"expiresDate"`
	Type                        string `json:"type"`
	AppAccountToken             string `json:"appAccountToken"`
	RevocationDate              int64  `json:"revocationDate"`
	Environment                 string `json:"environment"`
	Price                       int64  `json:"price"`
	Currency                    string `json:"currency"`
}

type RenewalInfo struct {
	jwt.StandardClaims
	OriginalTransactionId  string `json:"originalTransactionId"`
	AutoRenewProductId     string `json:"autoRenewProductId"`
	ProductId              string `json:"productId"`
	AutoRenewStatus        int    `json:"autoRenewStatus"`
	IsInBillingRetryPeriod bool   `json:"isInBillingRetryPeriod"`
	GracePeriodExpiresDate int64  `json:"gracePeriodExpiresDate"`
	RenewalDate            int64  `json:"renewalDate"`
}

// AppStoreServerNotification is a verified, decoded notification.
type AppStoreServerNotification struct {
	appleRootCert string

	Payload            *NotificationPayload `json:"payload"`
	TransactionInfo    *TransactionInfo     `json:"transaction_info"`
	RenewalInfo        *RenewalInfo         `json:"renewal_info"`
	IsValid            bool                 `json:"is_valid"`
	IsTestNotification bool                 `json:"is_test_notification"`
	IsSandbox          bool                 `json:"is_sandbox"`
}
