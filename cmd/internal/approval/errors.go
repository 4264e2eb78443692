package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID is returned when a session id is empty or oversized.
	ErrInvalidID = errors.New("invalid session id")

	// ErrInvalidState is returned when a state is outside the closed enumeration.
	ErrInvalidState = errors.New("invalid session state")

	// ErrNotDurable marks an operation that was applied in memory only because the
	// durable backend failed. The caller's view is consistent, but a crash loses it.
	ErrNotDurable = errors.New("session store degraded: not durable")
)

// DegradedError carries the backend failure behind an ErrNotDurable result.
type DegradedError struct {
	Op  string
	ID  string
	Err error
}

func (e *DegradedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, ErrNotDurable.Error())
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.ID, ErrNotDurable.Error(), e.Err)
}

// Is makes errors.Is(err, ErrNotDurable) hold for every DegradedError.
func (e *DegradedError) Is(target error) bool { return target == ErrNotDurable }

func (e *DegradedError) Unwrap() error { return e.Err }

// IsDegraded reports whether err only signals a non-durable success.
func IsDegraded(err error) bool { return errors.Is(err, ErrNotDurable) }
