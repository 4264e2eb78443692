package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

var errChannelDown = errors.New("channel down")

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []Notification
	acked   []string
	sendErr error
	ackErr  error
	block   bool
}

func (f *fakeMessenger) Send(ctx context.Context, n Notification) error {
	f.mu.Lock()
	block, err := f.block, f.sendErr
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) Acknowledge(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, handle)
	return f.ackErr
}

func (f *fakeMessenger) sentCopy() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

func (f *fakeMessenger) ackedCopy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type recordingListener struct {
	mu     sync.Mutex
	events []approval.Transition
}

func (l *recordingListener) SessionChanged(id string, state approval.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, approval.Transition{ID: id, To: state})
}

func (l *recordingListener) snapshot() []approval.Transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]approval.Transition(nil), l.events...)
}

// brokenStore fails every write with a backend error.
type brokenStore struct{ *approval.MemoryStore }

func (brokenStore) Put(context.Context, string, approval.State) error {
	return errors.New("disk full")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
