// Package auth checks the shared secret callers present to the gateway.
//
// A caller may send the secret as X-API-Key, as "Authorization: Bearer
// <secret>" or as a bare Authorization value. X-API-Key wins when both are
// present and non-empty.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingCredential = errors.New("Missing API key")
	ErrInvalidCredential = errors.New("Invalid API key")
)

const bearerPrefix = "Bearer "

// ExtractCredential returns the secret presented in header. The boolean is
// false when neither header carries a value.
func ExtractCredential(header http.Header) (string, bool) {
	if key := strings.TrimSpace(header.Get("X-API-Key")); key != "" {
		return key, true
	}

	authz := strings.TrimSpace(header.Get("Authorization"))
	authz = strings.TrimSpace(strings.TrimPrefix(authz, bearerPrefix))
	if authz == "" {
		return "", false
	}
	return authz, true
}

// Validate compares presented against expected. Both values are hashed first
// so the comparison always runs over two 32-byte digests.
func Validate(presented, expected string) error {
	if presented == "" {
		return ErrMissingCredential
	}
	if !equal(presented, expected) {
		return ErrInvalidCredential
	}
	return nil
}

// ExtractAndValidate extracts the credential from header and validates it.
// On success it returns the credential so callers can derive a rate limit key.
func ExtractAndValidate(header http.Header, expected string) (string, error) {
	presented, ok := ExtractCredential(header)
	if !ok {
		return "", ErrMissingCredential
	}
	if err := Validate(presented, expected); err != nil {
		return "", err
	}
	return presented, nil
}

// compare is swapped in tests to observe the comparison routine.
var compare = subtle.ConstantTimeCompare

func equal(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return compare(da[:], db[:]) == 1
}
