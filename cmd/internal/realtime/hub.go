package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

// Hub tracks which connections watch which session and fans transitions out to them.
// It implements relay.StatusListener.
type Hub struct {
	log *slog.Logger

	mu     sync.Mutex
	groups map[string]*watchGroup
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:    log,
		groups: make(map[string]*watchGroup),
	}
}

// Watch subscribes client to its session's transitions.
func (h *Hub) Watch(client *Client) {
	if h == nil || client == nil || client.SessionID == "" || client.ConnID == "" {
		return
	}

	h.mu.Lock()
	g, ok := h.groups[client.SessionID]
	if !ok {
		g = newWatchGroup(h.log, client.SessionID)
		h.groups[client.SessionID] = g
	}
	g.join(client)
	h.mu.Unlock()
}

// Unwatch removes client and drops the session's group once empty.
func (h *Hub) Unwatch(client *Client) {
	if h == nil || client == nil {
		return
	}

	h.mu.Lock()
	if g, ok := h.groups[client.SessionID]; ok {
		if g.leave(client.ConnID) == 0 {
			delete(h.groups, client.SessionID)
		}
	}
	h.mu.Unlock()
}

// Watchers returns how many connections watch sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.Lock()
	g := h.groups[sessionID]
	h.mu.Unlock()

	if g == nil {
		return 0
	}
	return g.len()
}

// SessionChanged pushes a status envelope to every watcher of id. It never blocks.
func (h *Hub) SessionChanged(id string, state approval.State) {
	h.mu.Lock()
	g := h.groups[id]
	h.mu.Unlock()

	if g == nil {
		return
	}

	env, err := newStatusEnvelope(id, state, nil, time.Now().UTC())
	if err != nil {
		h.log.Error("ws.status.encode_failed", "session_id", id, "err", err)
		return
	}
	n := g.broadcast(env)
	h.log.Debug("ws.status.pushed", "session_id", id, "state", state, "watchers", n)
}
