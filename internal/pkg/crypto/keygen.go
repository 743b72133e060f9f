// Package crypto provides token generation and digest utilities for Galley.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenLength is the length in characters of an issued API token.
// 20 random bytes hex-encoded, matching the classic opaque token shape.
const TokenLength = 40

// GenerateToken generates a random opaque API token.
// Format: lowercase hex, 40 characters.
// Example: "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"
func GenerateToken() (string, error) {
	raw := make([]byte, TokenLength/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
