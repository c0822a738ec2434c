// Package calendar renders room reservations as iCalendar feeds.
package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

const productID = "-//room-reservation-manager//rooms//EN"

// Feed renders a room's events as an ICS document. Pending events are
// published as tentative, confirmed ones as confirmed; other statuses are
// left out.
func Feed(room models.Room, events []models.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(room.Name)
	if room.Timezone != nil {
		cal.SetXWRTimezone(*room.Timezone)
	}

	for i := range events {
		ev := &events[i]
		status, ok := objectStatus(ev.Status)
		if !ok {
			continue
		}

		vev := cal.AddEvent(ev.ID + "@" + room.ID)
		vev.SetDtStampTime(now.UTC())
		vev.SetCreatedTime(ev.CreatedAt.UTC())
		vev.SetModifiedAt(ev.UpdatedAt.UTC())
		vev.SetStartAt(ev.StartsAt.UTC())
		vev.SetEndAt(ev.EndsAt.UTC())
		vev.SetSummary(ev.Title)
		vev.SetLocation(room.Name)
		vev.SetStatus(status)
		if ev.Description != nil {
			vev.SetDescription(*ev.Description)
		}
	}

	return cal.Serialize()
}

func objectStatus(s string) (ical.ObjectStatus, bool) {
	switch s {
	case models.EventStatusPending:
		return ical.ObjectStatusTentative, true
	case models.EventStatusConfirmed:
		return ical.ObjectStatusConfirmed, true
	}
	return "", false
}
