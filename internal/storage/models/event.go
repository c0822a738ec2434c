package models

import (
	"time"
)

// Event is a reservation of a room for a time window.
type Event struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Event status constants
const (
	EventStatusPending   = "pending"   // Awaiting approval
	EventStatusConfirmed = "confirmed" // Holds the room, drives devices
	EventStatusRejected  = "rejected"  // Declined by an approver
	EventStatusCancelled = "cancelled" // Withdrawn (soft delete)
)

// IsTerminal returns true if the event can no longer change.
func (e *Event) IsTerminal() bool {
	return e.Status == EventStatusRejected || e.Status == EventStatusCancelled
}

// IsConfirmed returns true if the event holds its room.
func (e *Event) IsConfirmed() bool {
	return e.Status == EventStatusConfirmed
}

// ValidEventStatus reports whether s is a known status.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusPending, EventStatusConfirmed, EventStatusRejected, EventStatusCancelled:
		return true
	}
	return false
}

// EventWithRoom combines an event with the room it belongs to.
type EventWithRoom struct {
	Event
	Room Room `json:"room"`
}

// EventFilter narrows event listings. Zero values are ignored; From/To
// select events whose window intersects [From, To].
type EventFilter struct {
	RoomID string
	Status string
	From   time.Time
	To     time.Time
}
