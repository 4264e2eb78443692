package app

import (
	"errors"
	"fmt"

	"github.com/arapchelogoi/Sendwave/cmd/security/token"
)

// ValidateSecurityConfig enforces the webhook secret policy at startup.
//
// With RELAY_REQUIRE_WEBHOOK_SECRET=true the secret must be present and at least
// token.MinSecretBytes long. An optional secret, when set, must still be accepted by
// Telegram's setWebhook.
func ValidateSecurityConfig(cfg Config) error {
	minBytes := 1
	if cfg.RequireWebhookSecret {
		minBytes = token.MinSecretBytes
	} else if cfg.WebhookSecret == "" {
		return nil
	}

	err := token.ValidateSecret(cfg.WebhookSecret, minBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrSecretMissing):
		return errors.New("security policy: RELAY_REQUIRE_WEBHOOK_SECRET=true but RELAY_WEBHOOK_SECRET is missing")
	case errors.Is(err, token.ErrSecretTooShort):
		return fmt.Errorf("security policy: RELAY_WEBHOOK_SECRET is too short (min %d bytes)", minBytes)
	case errors.Is(err, token.ErrSecretInvalid):
		return errors.New("security policy: RELAY_WEBHOOK_SECRET may only contain A-Z, a-z, 0-9, _ and -")
	default:
		return err
	}
}
