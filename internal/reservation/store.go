package reservation

import (
	"context"
	"time"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// RoomStore persists rooms. Lookups of absent rooms return (nil, nil).
type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetRoomByAsset(ctx context.Context, assetID string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	UpdateRoomLink(ctx context.Context, link models.RoomLink) (*models.Room, error)
}

// EventStore persists events. Lookups of absent events return (nil, nil).
//
// Writes that would leave two confirmed events in one room overlapping must
// fail with storage.ErrConfirmedOverlap; the store is the authority for that
// rule and ConflictChecker only rejects early.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)

	// UpdateEvent writes the editable fields. It reports false when the
	// event is missing or its status no longer matches event.Status.
	UpdateEvent(ctx context.Context, event *models.Event) (bool, error)

	// TransitionEvent sets status to `to` if the current status is in
	// `from`, reporting whether it did.
	TransitionEvent(ctx context.Context, id, to string, from ...string) (bool, error)

	FindConfirmedOverlaps(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.Event, error)
	ListConfirmedInWindow(ctx context.Context, from, to time.Time) ([]models.EventWithRoom, error)
}

// Store is the full persistence contract of the engine.
type Store interface {
	RoomStore
	EventStore
}
