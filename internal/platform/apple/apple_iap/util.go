package apple_iap

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	uuidHexLen = 32
	// one hex pair of length prefix, the rest carries the id bytes
	maxUserIDBytes = (uuidHexLen - 2) / 2
	padChar        = "a"
)

// UserIDToUUID encodes a user id as the appAccountToken attached to App Store purchases.
// Layout: [2-hex byte length][hex of the id bytes][padding with 'a' up to 32 hex].
func UserIDToUUID(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is empty")
	}
	if len(userID) > maxUserIDBytes {
		return "", fmt.Errorf("user id too long: max length is %d bytes", maxUserIDBytes)
	}

	uuidHex := fmt.Sprintf("%02x", len(userID)) + hex.EncodeToString([]byte(userID))
	uuidHex += strings.Repeat(padChar, uuidHexLen-len(uuidHex))
	return uuidHex[:8] + "-" + uuidHex[8:12] + "-" + uuidHex[12:16] + "-" + uuidHex[16:20] + "-" + uuidHex[20:], nil
}

// UUIDToUserID decodes an appAccountToken produced by UserIDToUUID.
func UUIDToUserID(uuid string) (string, error) {
	clean := strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
	if len(clean) != uuidHexLen {
		return "", fmt.Errorf("invalid uuid format")
	}
	n, err := strconv.ParseUint(clean[:2], 16, 8)
	if err != nil || n == 0 || int(n) > maxUserIDBytes {
		return "", fmt.Errorf("uuid is not encoded by known user id scheme")
	}
	end := 2 + int(n)*2
	if strings.Trim(clean[end:], padChar) != "" {
		return "", fmt.Errorf("uuid is not encoded by known user id scheme")
	}
	raw, err := hex.DecodeString(clean[2:end])
	if err != nil {
		return "", fmt.Errorf("invalid uuid format: %w", err)
	}
	return string(raw), nil
}
