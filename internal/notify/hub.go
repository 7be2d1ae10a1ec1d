package notify

import (
	"log"
	"sync"
)

// Session is one live client connection able to receive messages.
type Session interface {
	Send(msg Message) error
}

// Hub is the in-process registry mapping identities to their active
// connections. It is owned by the serving process and mutated only by
// connect/disconnect events; every push goes through the Gateway methods.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[Session]struct{}
}

// NewHub creates an empty registry.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[Session]struct{})}
}

// Register adds a connection for an identity.
func (h *Hub) Register(identity string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[identity] == nil {
		h.sessions[identity] = make(map[Session]struct{})
	}
	h.sessions[identity][s] = struct{}{}
}

// Unregister removes a connection for an identity.
func (h *Hub) Unregister(identity string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[identity], s)
	if len(h.sessions[identity]) == 0 {
		delete(h.sessions, identity)
	}
}

// SendTo delivers a message to every connection of one identity. Send
// failures are logged; the failing connection is left for its reader loop
// to tear down.
func (h *Hub) SendTo(identity string, msg Message) {
	h.mu.Lock()
	conns := make([]Session, 0, len(h.sessions[identity]))
	for s := range h.sessions[identity] {
		conns = append(conns, s)
	}
	h.mu.Unlock()

	for _, s := range conns {
		if err := s.Send(msg); err != nil {
			log.Printf("notify: send to %s: %v", identity, err)
		}
	}
}

// TaskChanged implements Gateway.
func (h *Hub) TaskChanged(identities []string, taskID string) {
	for _, id := range identities {
		h.SendTo(id, Message{Type: TypeTaskChanged, TaskID: taskID})
	}
}

// TaskRemoved implements Gateway.
func (h *Hub) TaskRemoved(identities []string, taskID string) {
	for _, id := range identities {
		h.SendTo(id, Message{Type: TypeTaskRemoved, TaskID: taskID})
	}
}
