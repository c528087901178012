package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken maps a bearer token to the digest stored alongside the
// customer row; raw tokens are never persisted.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
