package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"estate/internal/models"
	"estate/internal/notify"
)

// Hub fans notifications out to every open socket of a user. It doubles as
// a notify.Sink so the dispatcher pushes to connected browsers.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Connected returns how many sockets the user has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Name() string { return "websocket" }

// Send queues the notification on each of the user's open sockets. Slow
// clients whose buffer is full miss the message, and sockets already closing
// are skipped.
func (h *Hub) Send(_ context.Context, to models.Contact, n notify.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[to.UserID] {
		select {
		case <-client.done:
			continue
		default:
		}
		select {
		case client.send <- payload:
		default:
		}
	}
	return nil
}
