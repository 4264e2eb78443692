package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const (
	// SecretEnvKey is the env var name for the webhook secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "RELAY_WEBHOOK_SECRET"

	// MinSecretBytes is the enforced minimum when a secret is required.
	MinSecretBytes = 32

	maxSecretBytes = 256
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ValidateSecret checks s against Telegram's secret_token rules and minBytes.
func ValidateSecret(s string, minBytes int) error {
	if s == "" {
		return ErrSecretMissing
	}
	if len(s) > maxSecretBytes {
		return ErrSecretInvalid
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return ErrSecretInvalid
		}
	}
	if minBytes > 0 && len(s) < minBytes {
		return ErrSecretTooShort
	}
	return nil
}

// Equal compares got against want in constant time. Both sides are hashed first so
// the comparison does not depend on either length.
func Equal(got, want string) bool {
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], w[:]) == 1
}

// Fingerprint returns a short, log-safe identifier for a secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return HashSHA256Hex(secret)[:12]
}
