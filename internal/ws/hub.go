package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-demo/matchmaker/internal/repository"
	"go.uber.org/zap"
)

const eventBufferSize = 256

// Hub maintains the set of active clients and fans room events out to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients by user: userID -> clients (supports multiple connections)
	users map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Room events from the directory
	events chan repository.RoomEvent

	// Closed once Run returns
	done chan struct{}

	// Mutex for thread-safe access
	mu sync.RWMutex

	logger *zap.Logger
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan repository.RoomEvent, eventBufferSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// OnRoomEvent queues a directory change for broadcast. It never blocks the
// directory; events are dropped when the hub falls behind.
func (h *Hub) OnRoomEvent(event repository.RoomEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("Room feed queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("room_id", event.Room.ID),
		)
	}
}

// Register hands a client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Run serves the hub until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.events:
			h.broadcast(event)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true

	h.logger.Info("Client connected",
		zap.String("user_id", client.userID),
		zap.String("username", client.username),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client)

	if userClients, ok := h.users[client.userID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.users, client.userID)
		}
	}

	h.mu.Unlock()

	client.Close()

	h.logger.Info("Client disconnected",
		zap.String("user_id", client.userID),
		zap.String("username", client.username),
	)
}

func (h *Hub) broadcast(event repository.RoomEvent) {
	msg, err := NewRoomEventMessage(event)
	if err != nil {
		h.logger.Error("Failed to build room event", zap.Error(err))
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal room event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.Wants(event.Room) {
			client.sendRaw(data)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*Client]bool)
	h.users = make(map[string]map[*Client]bool)
}

// IsUserOnline checks if a user has an open feed
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// GetStats returns hub statistics
func (h *Hub) GetStats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]int{
		"total_clients": len(h.clients),
		"online_users":  len(h.users),
		"queued_events": len(h.events),
	}
}
