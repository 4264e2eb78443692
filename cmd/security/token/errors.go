package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("webhook secret missing")
	ErrSecretTooShort = errors.New("webhook secret too short")
	ErrSecretInvalid  = errors.New("webhook secret invalid")
)
