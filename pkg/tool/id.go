package tool

import (
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SubjectToken encodes an arbitrary user id into a token safe for NATS subjects and Redis keys.
func SubjectToken(userID string) string {
	return hex.EncodeToString([]byte(userID))
}
