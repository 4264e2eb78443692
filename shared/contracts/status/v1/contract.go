// Package v1 defines the Sendwave status stream protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol clients must offer.
const Subprotocol = "sendwave.status.v1"

// Type constants (wire-stable).
const (
	// TypeStatus carries the current state of the watched session (server -> client).
	TypeStatus = "status"
	// TypeStatusFetch asks for a fresh status envelope (client -> server).
	TypeStatusFetch = "status_fetch"
	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeStatus, TypeStatusFetch, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// StatusPayload reports a session's state. Terminal is true for every state but
// "pending"; the server closes the stream after delivering one.
type StatusPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Terminal  bool   `json:"terminal"`
	Durable   *bool  `json:"durable,omitempty"`
}

// StatusFetchPayload requests the current status; it carries no fields.
type StatusFetchPayload struct{}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
