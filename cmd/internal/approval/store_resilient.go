package approval

import (
	"context"
	"errors"
	"log/slog"
)

// Resilient wraps a durable backend and keeps serving when the backend fails.
//
// Every operation on an id runs under that id's stripe lock, so the overlay and the
// backend never disagree mid-operation. On a backend failure the operation is applied
// to the in-memory overlay and a *DegradedError is returned. While the overlay holds an
// id it wins on reads; a later durable Put or any Delete clears it.
type Resilient struct {
	backend Store
	overlay *MemoryStore
	locks   keyLock
	log     *slog.Logger

	onDegraded func(op string)
}

// ResilientOption configures a Resilient store.
type ResilientOption func(*Resilient)

// WithDegradedHook registers a callback invoked once per degraded operation.
func WithDegradedHook(fn func(op string)) ResilientOption {
	return func(r *Resilient) { r.onDegraded = fn }
}

// NewResilient wraps backend. A nil logger falls back to slog.Default.
func NewResilient(backend Store, log *slog.Logger, opts ...ResilientOption) *Resilient {
	if log == nil {
		log = slog.Default()
	}
	r := &Resilient{
		backend: backend,
		overlay: NewMemoryStore(),
		log:     log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Backend returns the wrapped store.
func (r *Resilient) Backend() Store { return r.backend }

// Close closes the backend.
func (r *Resilient) Close() error { return r.backend.Close() }

// Put upserts durably, or in memory only when the backend fails.
func (r *Resilient) Put(ctx context.Context, id string, state State) error {
	if err := validatePut(id, state); err != nil {
		return err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	if err := r.backend.Put(ctx, id, state); err != nil {
		if isCallerError(err) {
			return err
		}
		// The overlay uses a fresh context: the caller's may be the one that expired.
		_ = r.overlay.Put(context.Background(), id, state)
		return r.degraded("put", id, err)
	}

	_ = r.overlay.Delete(context.Background(), id)
	return nil
}

// Get reads the overlay first, then the backend. A failing backend reads as pending.
func (r *Resilient) Get(ctx context.Context, id string) (State, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	if st, ok := r.overlay.lookup(id); ok {
		return st, nil
	}

	st, err := r.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			return "", err
		}
		return StatePending, r.degraded("get", id, err)
	}
	return st, nil
}

// Delete removes id from the overlay and the backend.
func (r *Resilient) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	unlock := r.locks.lock(id)
	defer unlock()

	_ = r.overlay.Delete(context.Background(), id)
	if err := r.backend.Delete(ctx, id); err != nil {
		if isCallerError(err) {
			return err
		}
		return r.degraded("delete", id, err)
	}
	return nil
}

// DegradedLen returns how many ids are currently held only in memory.
func (r *Resilient) DegradedLen() int { return r.overlay.Len() }

func (r *Resilient) degraded(op, id string, err error) error {
	r.log.Warn("approval.store.degraded", "op", op, "session_id", id, "err", err)
	if r.onDegraded != nil {
		r.onDegraded(op)
	}
	return &DegradedError{Op: op, ID: id, Err: err}
}

// isCallerError separates input errors, which are the caller's to handle, from
// backend I/O failures.
func isCallerError(err error) bool {
	return errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidState)
}
