package apple_notification

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

type testChain struct {
	rootPEM string
	x5c     []string
	leafKey *ecdsa.PrivateKey
}

func newCert(t *testing.T, cn string, serial int64, isCA bool, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if isCA {
		tmpl.KeyUsage |= x509.KeyUsageCertSign
	}
	if parent == nil {
		parent, parentKey = tmpl, key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, &key.PublicKey, parentKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func newTestChain(t *testing.T) *testChain {
	root, rootKey := newCert(t, "test root", 1, true, nil, nil)
	inter, interKey := newCert(t, "test intermediate", 2, true, root, rootKey)
	leaf, leafKey := newCert(t, "test leaf", 3, false, inter, interKey)

	enc := func(c *x509.Certificate) string { return base64.StdEncoding.EncodeToString(c.Raw) }
	return &testChain{
		rootPEM: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: root.Raw})),
		x5c:     []string{enc(leaf), enc(inter), enc(root)},
		leafKey: leafKey,
	}
}

func (c *testChain) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["x5c"] = c.x5c
	s, err := token.SignedString(c.leafKey)
	require.NoError(t, err)
	return s
}

func TestNewWithRoot_DecodesSignedPayload(t *testing.T) {
	chain := newTestChain(t)
	txn := chain.sign(t, jwt.MapClaims{
		"transactionId":         "2000000001",
		"originalTransactionId": "1000000001",
		"productId":             "com.app.plus_monthly",
		"purchaseDate":          1717243200000,
		"expiresDate":           1719921600000,
		"type":                  "Auto-Renewable Subscription",
		"appAccountToken":       "0a757365-725f-3432-aaaa-aaaaaaaaaaaa",
	})
	renewal := chain.sign(t, jwt.MapClaims{
		"originalTransactionId":  "1000000001",
		"autoRenewStatus":        1,
		"gracePeriodExpiresDate": 1720526400000,
	})
	payload := chain.sign(t, jwt.MapClaims{
		"notificationType": TypeDidFailToRenew,
		"subtype":          SubtypeGracePeriod,
		"data": map[string]any{
			"environment":           "Sandbox",
			"signedTransactionInfo": txn,
			"signedRenewalInfo":     renewal,
		},
	})

	n, err := NewWithRoot(payload, chain.rootPEM)
	require.NoError(t, err)
	require.True(t, n.IsValid)
	require.True(t, n.IsSandbox)
	require.Equal(t, TypeDidFailToRenew, n.Payload.NotificationType)
	require.Equal(t, "com.app.plus_monthly", n.TransactionInfo.ProductId)
	require.Equal(t, int64(1717243200000), n.TransactionInfo.PurchaseDate)
	require.NotNil(t, n.RenewalInfo)
	require.Equal(t, int64(1720526400000), n.RenewalInfo.GracePeriodExpiresDate)
}

func TestNewWithRoot_TestNotificationHasNoTransaction(t *testing.T) {
	chain := newTestChain(t)
	payload := chain.sign(t, jwt.MapClaims{"notificationType": TypeTest})

	n, err := NewWithRoot(payload, chain.rootPEM)
	require.NoError(t, err)
	require.True(t, n.IsTestNotification)
	require.Nil(t, n.TransactionInfo)
}

func TestNewWithRoot_RejectsUntrustedChain(t *testing.T) {
	chain := newTestChain(t)
	other := newTestChain(t)
	payload := chain.sign(t, jwt.MapClaims{"notificationType": TypeTest})

	_, err := NewWithRoot(payload, other.rootPEM)
	require.Error(t, err)

	_, err = New(payload)
	require.Error(t, err)
}

func TestNewWithRoot_RejectsMalformedPayload(t *testing.T) {
	_, err := New("not-a-jws")
	require.Error(t, err)

	_, err = New("e30.e30.sig")
	require.Error(t, err)
}
