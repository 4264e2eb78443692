package approval

import (
	"context"
	"strings"
)

// maxIDBytes bounds ids accepted by every backend.
const maxIDBytes = 128

// Store persists the id -> state mapping.
//
// Requirements:
//   - Put upserts and is durable before it returns (backend permitting)
//   - Get never fails on absence; absent ids read as StatePending
//   - Delete of an absent id is a no-op
//   - operations on one id are linearizable
type Store interface {
	Put(ctx context.Context, id string, state State) error
	Get(ctx context.Context, id string) (State, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxIDBytes {
		return ErrInvalidID
	}
	return nil
}

func validatePut(id string, state State) error {
	if err := validateID(id); err != nil {
		return err
	}
	if !state.Valid() {
		return ErrInvalidState
	}
	return nil
}
