package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/room-reservation-manager/backend/internal/api/middleware"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// ListEvents returns events filtered by roomId, status and a from/to window.
func ListEvents(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.EventFilter{
			RoomID: q.Get("roomId"),
			Status: q.Get("status"),
		}

		var err error
		if filter.From, err = parseInstant(q.Get("from")); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "from must be an RFC 3339 timestamp")
			return
		}
		if filter.To, err = parseInstant(q.Get("to")); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "to must be an RFC 3339 timestamp")
			return
		}

		events, err := m.ListEvents(r.Context(), filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// CreateEvent books a room. The event starts pending unless status says otherwise.
func CreateEvent(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in reservation.CreateEventInput
		if !decodeJSON(w, r, &in) {
			return
		}

		ev, err := m.CreateEvent(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ev)
	}
}

// GetEvent returns a single event by ID.
func GetEvent(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := m.GetEvent(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// UpdateEvent applies a partial edit.
func UpdateEvent(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in reservation.UpdateEventInput
		if !decodeJSON(w, r, &in) {
			return
		}

		ev, err := m.UpdateEvent(r.Context(), mux.Vars(r)["id"], in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// ApproveEvent confirms a pending event.
func ApproveEvent(m *reservation.Manager) http.HandlerFunc {
	return transitionHandler(m.ApproveEvent)
}

// RejectEvent declines a pending event.
func RejectEvent(m *reservation.Manager) http.HandlerFunc {
	return transitionHandler(m.RejectEvent)
}

// CancelEvent withdraws an event. The row is kept with status cancelled.
func CancelEvent(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.CancelEvent(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func transitionHandler(fn func(context.Context, string) (*models.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := fn(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
