package fanout

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dkoval/newsherald/pkg/feed"
)

const sessionBuffer = 32

// Session is one connected live client, tied to the user it
// authenticated as.
type Session struct {
	ID     string
	UserID int64
	ch     chan []byte
}

// Messages is the session's outbound stream.
func (s *Session) Messages() <-chan []byte { return s.ch }

// Hub fans one encoded message out to connected sessions. Delivery is
// best-effort, at-most-once per connection per item: a session with a
// full buffer misses that item, and nothing is retried.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		log:      log.With("component", "hub"),
	}
}

// Attach registers a new session for the given user.
func (h *Hub) Attach(id string, userID int64) *Session {
	s := &Session{ID: id, UserID: userID, ch: make(chan []byte, sessionBuffer)}
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
	return s
}

// Detach removes a session and closes its stream.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok {
		close(s.ch)
	}
}

// Sessions returns the number of connected sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast encodes the item once and sends it to every connected
// session whose user is in the eligible set, without blocking.
// A nil eligible set means all sessions. Returns sessions reached.
func (h *Hub) Broadcast(item feed.Item, eligible map[int64]struct{}) int {
	payload, err := json.Marshal(item)
	if err != nil {
		h.log.Error("broadcast encode failed", "item", item.ID, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, s := range h.sessions {
		if eligible != nil {
			if _, ok := eligible[s.UserID]; !ok {
				continue
			}
		}
		select {
		case s.ch <- payload:
			sent++
		default:
			h.log.Warn("session buffer full, dropping item", "session", s.ID, "item", item.ID)
		}
	}
	return sent
}
