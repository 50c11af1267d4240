package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"statboard/internal/models"
)

// Message types pushed to live clients
const (
	MessageDashboard  = "dashboard"
	MessageConnection = "connection"
)

const clientSendBuffer = 16

// WebSocketMessage is the envelope of every live update
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ClientConnection is one connected live viewer
type ClientConnection struct {
	ID     string
	Viewer string
	Conn   *websocket.Conn
	Send   chan WebSocketMessage
}

// NewClientConnection wraps conn with a fresh client ID
func NewClientConnection(conn *websocket.Conn, viewer string) *ClientConnection {
	return &ClientConnection{
		ID:     uuid.NewString(),
		Viewer: viewer,
		Conn:   conn,
		Send:   make(chan WebSocketMessage, clientSendBuffer),
	}
}

// WebSocketHub fans dashboard and connection updates out to live clients
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
	logger     *slog.Logger
}

// NewWebSocketHub creates a hub. Run must be started before clients register.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "ws"),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client connected", "id", client.ID, "viewer", client.Viewer, "total", total)

		case id := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[id]; ok {
				delete(h.clients, id)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client disconnected", "id", id, "total", total)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// slow client, drop this update
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes the client with id and closes its Send channel
func (h *WebSocketHub) Unregister(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the update is dropped, the next one supersedes it anyway.
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debug("Broadcast queue full, dropping update", "type", msg.Type)
	}
}

// PublishDashboard is a Poller subscriber
func (h *WebSocketHub) PublishDashboard(state models.DashboardState) {
	h.Broadcast(WebSocketMessage{Type: MessageDashboard, Timestamp: state.Timestamp, Data: state})
}

// PublishConnection is a ConnectionProbe subscriber
func (h *WebSocketHub) PublishConnection(status models.ConnectionStatus) {
	h.Broadcast(WebSocketMessage{Type: MessageConnection, Timestamp: status.CheckedAt, Data: status})
}

// ClientCount returns the number of registered clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends Run and closes every client's Send channel
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
