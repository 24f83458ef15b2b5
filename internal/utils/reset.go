package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
)

// NewResetToken returns a cryptographically random password-reset token as a
// hex string.  Only the SHA-256 of the raw value is persisted, so a leaked
// database row cannot be replayed against the reset endpoint.
func NewResetToken() (string, error) {
    buf := make([]byte, 32)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}

// HashResetToken returns the SHA-256 hex digest of a raw reset token.
func HashResetToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
