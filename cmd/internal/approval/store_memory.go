package approval

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
// It backs tests and dev runs, and is the overlay used by Resilient.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]State
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]State)}
}

// Close is a noop for in-memory.
func (s *MemoryStore) Close() error { return nil }

// Put upserts the state for id.
func (s *MemoryStore) Put(ctx context.Context, id string, state State) error {
	if err := validatePut(id, state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[id] = state
	s.mu.Unlock()
	return nil
}

// Get returns the state for id, or StatePending when absent.
func (s *MemoryStore) Get(ctx context.Context, id string) (State, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	st, ok := s.lookup(id)
	if !ok {
		return StatePending, nil
	}
	return st, nil
}

// Delete removes id if present.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) lookup(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	return st, ok
}
