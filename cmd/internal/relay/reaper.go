package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

const (
	DefaultDeleteDelay = 5 * time.Second

	reapTimeout = 5 * time.Second
)

// Reaper deletes sessions a fixed delay after their decision has been read.
// At most one deletion is pending per id.
type Reaper struct {
	store   approval.Store
	delay   time.Duration
	log     *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	pending map[string]*pendingDelete
	stopped bool
}

type pendingDelete struct {
	timer *time.Timer
}

// NewReaper returns a Reaper deleting from store after delay (DefaultDeleteDelay when <= 0).
func NewReaper(store approval.Store, delay time.Duration, log *slog.Logger, metrics *Metrics) *Reaper {
	if delay <= 0 {
		delay = DefaultDeleteDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{
		store:   store,
		delay:   delay,
		log:     log,
		metrics: metrics,
		pending: make(map[string]*pendingDelete),
	}
}

// Delay returns the configured deletion delay.
func (r *Reaper) Delay() time.Duration { return r.delay }

// Schedule arranges for id to be deleted after the delay. It reports false when a
// deletion for id is already pending or the reaper has stopped.
func (r *Reaper) Schedule(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}
	if _, ok := r.pending[id]; ok {
		return false
	}

	p := &pendingDelete{}
	p.timer = time.AfterFunc(r.delay, func() { r.fire(id, p) })
	r.pending[id] = p
	r.metrics.deletionScheduled(len(r.pending))
	return true
}

// Cancel drops the pending deletion for id, if any.
func (r *Reaper) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(r.pending, id)
	r.metrics.deletionsWaiting(len(r.pending))
	return true
}

// Pending returns the number of deletions waiting to fire.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels every pending deletion. Later Schedule calls are ignored.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for id, p := range r.pending {
		p.timer.Stop()
		delete(r.pending, id)
	}
	r.metrics.deletionsWaiting(0)
}

func (r *Reaper) fire(id string, p *pendingDelete) {
	r.mu.Lock()
	if r.pending[id] != p {
		// Cancelled or replaced after the timer had already started.
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)
	r.metrics.deletionsWaiting(len(r.pending))
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
	defer cancel()

	if err := r.store.Delete(ctx, id); err != nil {
		r.log.Warn("relay.session.reap_failed", "session_id", id, "err", err)
		return
	}
	r.log.Debug("relay.session.reaped", "session_id", id)
}
