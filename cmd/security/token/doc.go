// Package token provides shared-secret primitives for the relay.
//
// It is the single source of truth for webhook secret handling.
//
// Design goals:
// - Secrets follow Telegram's secret_token alphabet (A-Z, a-z, 0-9, '_' and '-', 1-256 chars).
// - Comparison is constant-time and does not leak the expected length.
// - Logs only ever see a short SHA-256 fingerprint, never the secret.
//
// Environment (read by the app config):
// - RELAY_WEBHOOK_SECRET: when set, inbound webhook calls must echo it.
// Policy:
//   - If RELAY_REQUIRE_WEBHOOK_SECRET=true, callers MUST enforce a minimum size (>= 32 bytes).
package token
