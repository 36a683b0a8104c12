package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Send buffer size
	sendBufferSize = 256
)

// Filter selects which rooms a client hears about. A nil field matches all.
type Filter struct {
	Game     *model.Game
	Platform *model.Platform
}

// Matches reports whether a room passes the filter
func (f Filter) Matches(room *model.Room) bool {
	if f.Game != nil && room.Game != *f.Game {
		return false
	}
	if f.Platform != nil && room.Platform != *f.Platform {
		return false
	}
	return true
}

// ParseFilter builds a filter from short game and platform names
func ParseFilter(game, platform string) (Filter, bool) {
	var f Filter
	if game != "" {
		g, ok := model.ParseGame(game)
		if !ok {
			return f, false
		}
		f.Game = &g
	}
	if platform != "" {
		p, ok := model.ParsePlatform(platform)
		if !ok {
			return f, false
		}
		f.Platform = &p
	}
	return f, true
}

// Client represents a WebSocket client connection
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    string
	username  string
	filter    Filter
	mu        sync.RWMutex
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewClient creates a new client
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string, filter Filter, logger *zap.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		userID:   userID,
		username: username,
		filter:   filter,
		logger:   logger,
	}
}

// GetUserID returns client's user ID
func (c *Client) GetUserID() string {
	return c.userID
}

// GetUsername returns client's username
func (c *Client) GetUsername() string {
	return c.username
}

// GetFilter returns the active filter
func (c *Client) GetFilter() Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SetFilter replaces the active filter
func (c *Client) SetFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

// Wants reports whether the client is subscribed to the room
func (c *Client) Wants(room *model.Room) bool {
	return c.GetFilter().Matches(room)
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.String("user_id", c.userID),
					zap.Error(err),
				)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Failed to parse message",
				zap.String("user_id", c.userID),
				zap.Error(err),
			)
			c.sendError(400, "Invalid message format")
			continue
		}

		c.handleMessage(&msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages based on type
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(msg)
	case MessageTypePing:
		c.handlePing()
	default:
		c.sendError(400, "Unknown message type")
	}
}

func (c *Client) handleSubscribe(msg *Message) {
	var payload SubscribePayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(400, "Invalid request parameters")
		return
	}

	filter, ok := ParseFilter(payload.Game, payload.Platform)
	if !ok {
		c.sendError(400, "Unknown game or platform")
		return
	}
	c.SetFilter(filter)

	ack, _ := NewMessage(MessageTypeSubscribed, &SubscribedPayload{
		Game:     payload.Game,
		Platform: payload.Platform,
	})
	c.SendMessage(ack)
}

func (c *Client) handlePing() {
	pongMsg, _ := NewMessage(MessageTypePong, nil)
	c.SendMessage(pongMsg)
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
		return
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		// Channel is full, client is slow
		c.logger.Warn("Client send buffer full",
			zap.String("user_id", c.userID),
		)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code int, message string) {
	errMsg, _ := NewErrorMessage(code, message)
	c.SendMessage(errMsg)
}

// Close closes the client's send queue
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}
