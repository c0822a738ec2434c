package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeEventStatusChanged MessageType = "event.status_changed"
	TypeEventUpdated       MessageType = "event.updated"
	TypeRoomLinked         MessageType = "room.linked"
	TypeSchedulePushed     MessageType = "schedule.pushed"
	TypeScheduleFailed     MessageType = "schedule.failed"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventStatusPayload is the payload for event.status_changed and
// event.updated messages.
type EventStatusPayload struct {
	EventID        string    `json:"eventId"`
	RoomID         string    `json:"roomId"`
	Title          string    `json:"title"`
	Change         string    `json:"change"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	Status         string    `json:"status"`
	StartsAt       time.Time `json:"startsAt"`
	EndsAt         time.Time `json:"endsAt"`
}

// RoomLinkedPayload is the payload for room.linked messages.
type RoomLinkedPayload struct {
	RoomID   string  `json:"roomId"`
	Name     string  `json:"name"`
	AssetID  *string `json:"openremoteAssetId,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

// SchedulePayload is the payload for schedule.* messages.
type SchedulePayload struct {
	EventID string `json:"eventId"`
	Op      string `json:"op"`
	Source  string `json:"source"`
	Error   string `json:"error,omitempty"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
