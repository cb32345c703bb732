package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSessionToken returns a cryptographically random, URL-safe
// session-scoped secret. 48 random bytes encode to 64 base64url
// characters, the minimum length the tracking contract requires.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes for session token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
