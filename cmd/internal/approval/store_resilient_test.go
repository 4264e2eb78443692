package approval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskGone = errors.New("disk gone")

// flakyStore fails every operation while down is set.
type flakyStore struct {
	*MemoryStore
	down atomic.Bool
}

func newFlakyStore() *flakyStore { return &flakyStore{MemoryStore: NewMemoryStore()} }

func (f *flakyStore) Put(ctx context.Context, id string, st State) error {
	if f.down.Load() {
		return errDiskGone
	}
	return f.MemoryStore.Put(ctx, id, st)
}

func (f *flakyStore) Get(ctx context.Context, id string) (State, error) {
	if f.down.Load() {
		return "", errDiskGone
	}
	return f.MemoryStore.Get(ctx, id)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	if f.down.Load() {
		return errDiskGone
	}
	return f.MemoryStore.Delete(ctx, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResilient_PutDegradesToOverlay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFlakyStore()

	var mu sync.Mutex
	var ops []string
	r := NewResilient(backend, discardLogger(), WithDegradedHook(func(op string) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
	}))

	backend.down.Store(true)
	err := r.Put(ctx, "s1", StateApproved)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotDurable)
	assert.ErrorIs(t, err, errDiskGone)
	assert.True(t, IsDegraded(err))

	var de *DegradedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "put", de.Op)
	assert.Equal(t, "s1", de.ID)

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err, "overlay reads do not touch the backend")
	assert.Equal(t, StateApproved, got)
	assert.Equal(t, 1, r.DegradedLen())

	mu.Lock()
	assert.Equal(t, []string{"put"}, ops)
	mu.Unlock()
}

func TestResilient_DurablePutClearsOverlay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFlakyStore()
	r := NewResilient(backend, discardLogger())

	backend.down.Store(true)
	require.ErrorIs(t, r.Put(ctx, "s1", StateApproved), ErrNotDurable)

	backend.down.Store(false)
	require.NoError(t, r.Put(ctx, "s1", StateContinue))
	assert.Equal(t, 0, r.DegradedLen())

	got, err := backend.MemoryStore.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateContinue, got)
}

func TestResilient_GetFailureReadsPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFlakyStore()
	r := NewResilient(backend, discardLogger())

	require.NoError(t, r.Put(ctx, "s1", StateApproved))
	backend.down.Store(true)

	got, err := r.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotDurable)
	assert.Equal(t, StatePending, got)
}

func TestResilient_DeleteClearsOverlayEvenWhenBackendFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFlakyStore()
	r := NewResilient(backend, discardLogger())

	backend.down.Store(true)
	require.ErrorIs(t, r.Put(ctx, "s1", StateWrongPIN), ErrNotDurable)
	require.ErrorIs(t, r.Delete(ctx, "s1"), ErrNotDurable)
	assert.Equal(t, 0, r.DegradedLen())

	backend.down.Store(false)
	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StatePending, got)
}

func TestResilient_InvalidInputIsNotDegraded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewResilient(newFlakyStore(), discardLogger())

	err := r.Put(ctx, "", StateApproved)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.False(t, IsDegraded(err))

	err = r.Put(ctx, "s1", State("nope"))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, IsDegraded(err))
}
