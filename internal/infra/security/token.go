package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// tokenByteLength gives 256 bits of entropy for session ids and one-shot
// change tokens, comfortably above the 128-bit floor.
const tokenByteLength = 32

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSessionID mints an identifier for a fresh session.
func GenerateSessionID() (string, error) {
	return GenerateSecureToken(tokenByteLength)
}

// GenerateTempToken mints the one-shot token attached to a remedial session.
func GenerateTempToken() (string, error) {
	return GenerateSecureToken(tokenByteLength)
}

// ConstantTimeEquals compares two strings without leaking where they diverge.
// Inputs are hashed first so the comparison time is independent of length.
func ConstantTimeEquals(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
