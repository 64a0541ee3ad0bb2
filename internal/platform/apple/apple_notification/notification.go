package apple_notification

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
)

const appleRootCAG3RootPem = `-----BEGIN CERTIFICATE-----
MIICQzCCAcmgAwIBAgIILcX8iNLFS5UwCgYIKoZIzj0EAwMwZzEbMBkGA1UEAwwS
QXBwbGUgUm9vdCBDQSAtIEczMSYwJAYDVQQLDB1BcHBsZSBDZXJ0aWZpY2F0aW9u
IEF1dGhvcml0eTETMBEGA1UECgwKQXBwbGUgSW5jLjELMAkGA1UEBhMCVVMwHhcN
MTQwNDMwMTgxOTA2WhcNMzkwNDMwMTgxOTA2WjBnMRswGQYDVQQDDBJBcHBsZSBS
b290IENBIC0gRzMxJjAkBgNVBAsMHUFwcGxlIENlcnRpZmljYXRpb24gQXV0aG9y
aXR5MRMwEQYDVQQKDApBcHBsZSBJbmMuMQswCQYDVQQGEwJVUzB2MBAGByqGSM49
AgEGBSuBBAAiA2IABJjpLz1AcqTtkyJygRMc3RCV8cWjTnHcFBbZDuWmBSp3ZHtf
TjjTuxxEtX/1H7YyYl3J6YRbTzBPEVoA/VhYDKX1DyxNB0cTddqXl5dvMVztK517
IDvYuVTZXpmkOlEKMaNCMEAwHQYDVR0OBBYEFLuw3qFYM4iapIqZ3r6966/ayySr
MA8GA1UdEwEB/wQFMAMBAf8wDgYDVR0PAQH/BAQDAgEGMAoGCCqGSM49BAMDA2gA
MGUCMQCD6cHEFl4aXTQY2e3v9GwOAEZLuN+yRhHFD/3meoyhpmvOwgPUnPWTxnS4
at+qIxUCMG1mihDK1A3UT82NQz60imOlM27jbdoXt2QfyFMm+YhidDkLF1vLUagM
6BgD56KyKA==
-----END CERTIFICATE-----`

// New verifies a signedPayload against the Apple Root CA - G3 and decodes it.
func New(payload string) (*AppStoreServerNotification, error) {
	return NewWithRoot(payload, appleRootCAG3RootPem)
}

// NewWithRoot is New with an explicit trust anchor.
func NewWithRoot(payload, rootPEM string) (*AppStoreServerNotification, error) {
	asn := &AppStoreServerNotification{appleRootCert: rootPEM}
	if err := asn.parseJwtSignedPayload(payload); err != nil {
		return nil, err
	}
	return asn, nil
}

// certificateChain returns the DER certificates of the x5c header: leaf, intermediate, root.
func certificateChain(token string) ([][]byte, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, errors.New("signed payload is not a compact JWS")
	}
	headerBytes, err := jwt.DecodeSegment(segments[0])
	if err != nil {
		return nil, fmt.Errorf("invalid jws header: %w", err)
	}
	var header NotificationHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("invalid jws header: %w", err)
	}
	if len(header.X5c) < 3 {
		return nil, errors.New("x5c header must carry leaf, intermediate and root certificates")
	}
	chain := make([][]byte, 0, len(header.X5c))
	for _, c := range header.X5c {
		der, err := base64.StdEncoding.DecodeString(c)
		if err != nil {
			return nil, fmt.Errorf("invalid x5c certificate: %w", err)
		}
		chain = append(chain, der)
	}
	return chain, nil
}

// verifiedKey checks the x5c chain against the trust anchor and returns the leaf public key.
func (asn *AppStoreServerNotification) verifiedKey(token string) (*ecdsa.PublicKey, error) {
	chain, err := certificateChain(token)
	if err != nil {
		return nil, err
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM([]byte(asn.appleRootCert)) {
		return nil, errors.New("root certificate couldn't be parsed")
	}
	interCert, err := x509.ParseCertificate(chain[1])
	if err != nil {
		return nil, errors.New("intermediate certificate couldn't be parsed")
	}
	intermediates := x509.NewCertPool()
	intermediates.AddCert(interCert)

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("leaf certificate couldn't be parsed: %w", err)
	}
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return nil, err
	}

	pk, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("appstore public key must be of type ecdsa.PublicKey")
	}
	return pk, nil
}

func (asn *AppStoreServerNotification) parseSigned(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return asn.verifiedKey(token)
	})
	return err
}

func (asn *AppStoreServerNotification) parseJwtSignedPayload(payload string) error {
	notificationPayload := &NotificationPayload{}
	if err := asn.parseSigned(payload, notificationPayload); err != nil {
		return err
	}
	asn.Payload = notificationPayload
	asn.IsTestNotification = notificationPayload.NotificationType == TypeTest
	asn.IsSandbox = notificationPayload.Data.Environment == "Sandbox"

	if asn.IsTestNotification {
		asn.IsValid = true
		return nil
	}

	transactionInfo := &TransactionInfo{}
	if err := asn.parseSigned(notificationPayload.Data.SignedTransactionInfo, transactionInfo); err != nil {
		return fmt.Errorf("invalid signed transaction info: %w", err)
	}
	asn.TransactionInfo = transactionInfo

	if notificationPayload.Data.SignedRenewalInfo != "" {
		renewalInfo := &RenewalInfo{}
		if err := asn.parseSigned(notificationPayload.Data.SignedRenewalInfo, renewalInfo); err != nil {
			return fmt.Errorf("invalid signed renewal info: %w", err)
		}
		asn.RenewalInfo = renewalInfo
	}

	asn.IsValid = true
	return nil
}
