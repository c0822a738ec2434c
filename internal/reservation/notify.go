package reservation

import "github.com/room-reservation-manager/backend/internal/storage/models"

// Change kinds reported to notifiers.
const (
	ChangeCreated   = "created"
	ChangeUpdated   = "updated"
	ChangeApproved  = "approved"
	ChangeRejected  = "rejected"
	ChangeCancelled = "cancelled"
)

// EventChange describes a committed change to an event.
type EventChange struct {
	Kind           string       `json:"kind"`
	PreviousStatus string       `json:"previousStatus,omitempty"`
	Event          models.Event `json:"event"`
}

// PushOutcome describes the result of one scheduler call.
type PushOutcome struct {
	Op      PushOp `json:"op"`
	EventID string `json:"eventId"`
	Source  string `json:"source"`
	Error   string `json:"error,omitempty"`
}

// Notifier receives engine events after they are committed. Implementations
// must not block; they run on request and worker goroutines.
type Notifier interface {
	EventChanged(change EventChange)
	RoomLinked(room models.Room)
	SchedulePushed(outcome PushOutcome)
}

// Notifiers fans out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) EventChanged(change EventChange) {
	for _, n := range ns {
		n.EventChanged(change)
	}
}

func (ns Notifiers) RoomLinked(room models.Room) {
	for _, n := range ns {
		n.RoomLinked(room)
	}
}

func (ns Notifiers) SchedulePushed(outcome PushOutcome) {
	for _, n := range ns {
		n.SchedulePushed(outcome)
	}
}

type noopNotifier struct{}

func (noopNotifier) EventChanged(EventChange)   {}
func (noopNotifier) RoomLinked(models.Room)     {}
func (noopNotifier) SchedulePushed(PushOutcome) {}
