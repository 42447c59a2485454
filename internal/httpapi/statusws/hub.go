// Package statusws pushes live request counters to local status-dashboard
// clients (the TUI, or a future web dashboard) over a WebSocket. Unlike the
// teacher's chat WebSocket, this is one-directional: the hub broadcasts
// snapshots, clients never send anything gatewayd acts on.
package statusws

import (
	"sync"

	"github.com/codefionn/gatewayd/internal/logger"
)

// Hub maintains the set of connected status-dashboard clients and
// broadcasts snapshot frames to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	quit       chan struct{}
	log        *logger.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		log:        logger.Global().WithPrefix("statusws"),
	}
}

// Run processes register/unregister/broadcast events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case frame := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.RUnlock()

		case <-h.quit:
			return
		}
	}
}

// Stop shuts the hub down. Safe to call once.
func (h *Hub) Stop() {
	close(h.quit)
}

// Register admits a new client to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the broadcast set.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Broadcast queues frame for every connected client without blocking: the
// frame is dropped if the hub's broadcast queue is full, and the hub loop
// removes (and closes the send channel of) any client whose send buffer is
// full when the frame is delivered.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		h.log.Warn("broadcast channel full, dropping snapshot frame")
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
