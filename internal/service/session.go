package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes is the entropy of a guest session token.
const sessionTokenBytes = 32

// GenerateSessionID generates a cryptographically secure guest session token.
// The token is unpadded base64url so it can be stored in a cookie as-is.
func GenerateSessionID() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
