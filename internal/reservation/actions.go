package reservation

import (
	"time"

	"github.com/room-reservation-manager/backend/internal/openremote"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

const (
	// DefaultLeadMinutes is how long before start devices are powered on
	// when neither the room nor the configuration says otherwise.
	DefaultLeadMinutes = 5

	// DefaultPowerAttribute is the device attribute switched on and off.
	DefaultPowerAttribute = "power"
)

// Command is an attribute write on a device asset.
type Command struct {
	Attribute string `json:"attribute"`
	Value     bool   `json:"value"`
}

// DeviceAction is a command bound to an instant. Actions are derived from
// a confirmed event on demand and never stored.
type DeviceAction struct {
	At      time.Time `json:"at"`
	Command Command   `json:"command"`
}

// DeriveActions returns the device actions for ev in room: power on at
// start minus the lead time, then power off at end. Rooms without a linked
// device asset produce no actions.
func DeriveActions(ev models.Event, room models.Room, cfg Config) []DeviceAction {
	if !room.HasDevice() {
		return nil
	}

	attr := cfg.powerAttribute()
	if room.PowerAttribute != nil && *room.PowerAttribute != "" {
		attr = *room.PowerAttribute
	}

	lead := cfg.leadMinutes()
	if room.PowerLeadMinutes != nil && *room.PowerLeadMinutes >= 0 {
		lead = *room.PowerLeadMinutes
	}

	start, end := Normalize(ev.StartsAt), Normalize(ev.EndsAt)
	return []DeviceAction{
		{At: start.Add(-time.Duration(lead) * time.Minute), Command: Command{Attribute: attr, Value: true}},
		{At: end, Command: Command{Attribute: attr, Value: false}},
	}
}

// BuildSchedule wraps the derived actions into the scheduler payload. The
// second result is false when the room has no device to drive.
func BuildSchedule(ev models.Event, room models.Room, cfg Config) (openremote.Schedule, bool) {
	actions := DeriveActions(ev, room, cfg)
	if len(actions) == 0 {
		return openremote.Schedule{}, false
	}

	s := openremote.Schedule{
		ScheduleID: ev.ID,
		AssetID:    *room.AssetID,
		StartsAt:   Normalize(ev.StartsAt),
		EndsAt:     Normalize(ev.EndsAt),
		Timezone:   ev.Timezone,
		Actions:    make([]openremote.Action, len(actions)),
	}
	for i, a := range actions {
		s.Actions[i] = openremote.Action{
			At:      a.At,
			Command: openremote.Command{Attribute: a.Command.Attribute, Value: a.Command.Value},
		}
	}
	return s, true
}
