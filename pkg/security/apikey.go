package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks raw API keys so the auth gate can tell them from
// session tokens.
const APIKeyPrefix = "ck_"

const (
	apiKeyBytes     = 32
	displayedPrefix = 8
)

// GenerateAPIKey returns the raw key, a short prefix safe to display and
// the SHA-256 hash to store.
func GenerateAPIKey() (raw, prefix, hash string, err error) {
	secret, err := RandomHex(apiKeyBytes)
	if err != nil {
		return "", "", "", err
	}
	raw = APIKeyPrefix + secret
	return raw, raw[:len(APIKeyPrefix)+displayedPrefix], HashToken(raw), nil
}

// IsAPIKey reports whether s has the shape of a raw API key.
func IsAPIKey(s string) bool {
	return strings.HasPrefix(s, APIKeyPrefix) && len(s) == len(APIKeyPrefix)+apiKeyBytes*2
}

// HashToken is the hex SHA-256 used to store API keys and reset tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
