package ws

import (
	"log"
	"sync"
)

// ─────────────────────────────────────────────
// Hub: manages connected user sessions
// ─────────────────────────────────────────────

// Hub maintains the set of active WebSocket sessions per user and pushes
// notification frames to them. A user may have several sessions open
// (multiple tabs/devices); each gets its own copy.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{} // userID → sessions
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client session to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.UserID] == nil {
		h.sessions[c.UserID] = make(map[*Client]struct{})
	}
	h.sessions[c.UserID][c] = struct{}{}
	h.mu.Unlock()
	log.Printf("[hub] user %s connected (sessions: %d)", c.UserID, h.SessionCount(c.UserID))
}

// Unregister removes a client session from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.sessions[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.UserID)
		}
	}
	h.mu.Unlock()
	log.Printf("[hub] user %s disconnected (sessions: %d)", c.UserID, h.SessionCount(c.UserID))
}

// SessionCount returns the number of open sessions for a user.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// SendToUser delivers a frame to every open session of the user.
// Sessions with a full send buffer are skipped; notifications are
// best-effort.
func (h *Hub) SendToUser(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[userID] {
		select {
		case c.send <- data:
		default:
			log.Printf("[hub] send buffer full for user %s session, dropping", userID)
		}
	}
}
