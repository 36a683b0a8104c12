package ws

import (
	"encoding/json"
	"time"

	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/repository"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> Server messages
	MessageTypeSubscribe MessageType = "subscribe"
	MessageTypePing      MessageType = "ping"

	// Server -> Client messages
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypePong        MessageType = "pong"
	MessageTypeRoomCreated MessageType = MessageType(repository.RoomEventCreated)
	MessageTypeRoomUpdated MessageType = MessageType(repository.RoomEventUpdated)
	MessageTypeRoomRemoved MessageType = MessageType(repository.RoomEventRemoved)
	MessageTypeError       MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SubscribePayload narrows the feed to one game and platform.
// Empty fields subscribe to everything.
type SubscribePayload struct {
	Game     string `json:"game,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// SubscribedPayload confirms the active filter
type SubscribedPayload struct {
	Game     string `json:"game,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// ErrorPayload represents error message
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewMessage creates a new message
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// NewRoomEventMessage converts a directory event into a feed message
func NewRoomEventMessage(event repository.RoomEvent) (*Message, error) {
	return NewMessage(MessageType(event.Type), response.NewRoomResponse(event.Room, nil))
}

// NewErrorMessage creates a new error message
func NewErrorMessage(code int, message string) (*Message, error) {
	return NewMessage(MessageTypeError, &ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// ParsePayload parses message payload into the given type
func (m *Message) ParsePayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
