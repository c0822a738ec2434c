package websocket

import (
	"log/slog"

	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// EventBroadcaster turns engine notifications into WebSocket messages.
type EventBroadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

var _ reservation.Notifier = (*EventBroadcaster)(nil)

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, logger: hub.logger}
}

// EventChanged broadcasts a committed event change.
func (b *EventBroadcaster) EventChanged(change reservation.EventChange) {
	msgType := TypeEventStatusChanged
	if change.Kind == reservation.ChangeUpdated || change.Kind == reservation.ChangeCreated {
		msgType = TypeEventUpdated
	}

	ev := change.Event
	b.broadcast(NewMessage(msgType, EventStatusPayload{
		EventID:        ev.ID,
		RoomID:         ev.RoomID,
		Title:          ev.Title,
		Change:         change.Kind,
		PreviousStatus: change.PreviousStatus,
		Status:         ev.Status,
		StartsAt:       ev.StartsAt,
		EndsAt:         ev.EndsAt,
	}))
}

// RoomLinked broadcasts a new device binding.
func (b *EventBroadcaster) RoomLinked(room models.Room) {
	b.broadcast(NewMessage(TypeRoomLinked, RoomLinkedPayload{
		RoomID:   room.ID,
		Name:     room.Name,
		AssetID:  room.AssetID,
		Timezone: room.Timezone,
	}))
}

// SchedulePushed broadcasts the outcome of a scheduler call.
func (b *EventBroadcaster) SchedulePushed(outcome reservation.PushOutcome) {
	msgType := TypeSchedulePushed
	if outcome.Error != "" {
		msgType = TypeScheduleFailed
	}
	b.broadcast(NewMessage(msgType, SchedulePayload{
		EventID: outcome.EventID,
		Op:      string(outcome.Op),
		Source:  outcome.Source,
		Error:   outcome.Error,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message", "type", msg.Type, "error", err)
		return
	}

	b.hub.Broadcast(data)
}
