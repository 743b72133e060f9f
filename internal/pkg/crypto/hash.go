package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestToken computes the storage digest of a plaintext token.
// Tokens are persisted by digest only, so a leaked database does not leak
// usable credentials.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidToken reports whether a string has the shape of an issued token
// (40 lowercase hex characters). Used as a pre-filter before hitting storage.
func ValidToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for _, c := range token {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
