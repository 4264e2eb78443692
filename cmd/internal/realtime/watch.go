package realtime

import (
	"log/slog"
	"sync"

	v1 "github.com/arapchelogoi/Sendwave/shared/contracts/status/v1"
)

// watchGroup is the set of connections watching one session.
//
// Concurrency guarantees:
// - join/leave are safe under concurrent broadcast.
// - broadcast never blocks (drops under backpressure).
// - broadcast is panic-safe because Client.Send is never closed by the server.
type watchGroup struct {
	log       *slog.Logger
	sessionID string

	mu      sync.RWMutex
	members map[string]*Client
}

func newWatchGroup(log *slog.Logger, sessionID string) *watchGroup {
	return &watchGroup{
		log:       log,
		sessionID: sessionID,
		members:   make(map[string]*Client),
	}
}

func (g *watchGroup) join(client *Client) {
	g.mu.Lock()
	g.members[client.ConnID] = client
	g.mu.Unlock()

	g.log.Debug("ws.watch.join", "session_id", g.sessionID, "conn_id", client.ConnID)
}

// leave removes connID and reports how many members remain.
func (g *watchGroup) leave(connID string) int {
	g.mu.Lock()
	delete(g.members, connID)
	n := len(g.members)
	g.mu.Unlock()

	g.log.Debug("ws.watch.leave", "session_id", g.sessionID, "conn_id", connID)
	return n
}

func (g *watchGroup) len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// broadcast returns the number of members the envelope was queued for.
func (g *watchGroup) broadcast(env v1.Envelope) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	delivered := 0
	for _, m := range g.members {
		select {
		case <-m.Done():
			continue
		default:
		}

		select {
		case m.Send <- env:
			delivered++
		default:
			// Drop rather than block the callback path.
			g.log.Info("ws.watch.drop", "session_id", g.sessionID, "conn_id", m.ConnID)
		}
	}
	return delivered
}
