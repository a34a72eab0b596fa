package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// APIKeyPrefix marks keys minted by GenerateAPIKey so they are easy to spot
// in config files and secret scanners.
const APIKeyPrefix = "wxp_"

// GenerateAPIKey produces a new random gateway key in the format
// wxp_<44 url-safe base64 chars>.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 33) // 33 bytes → 44 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey computes the SHA-256 hex digest of a raw API key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// KeyFingerprint is a short, non-reversible identifier for a credential,
// safe to use in logs, metrics and rate-limit keys.
func KeyFingerprint(rawKey string) string {
	return HashAPIKey(rawKey)[:16]
}
