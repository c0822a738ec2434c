package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/room-reservation-manager/backend/internal/calendar"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// ListRooms returns all rooms ordered by name.
func ListRooms(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := m.ListRooms(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// CreateRoom registers a room, optionally already bound to a device asset.
func CreateRoom(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in reservation.CreateRoomInput
		if !decodeJSON(w, r, &in) {
			return
		}

		room, err := m.CreateRoom(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

// GetRoom returns a single room by ID.
func GetRoom(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := m.GetRoom(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// RoomCalendar serves the room's pending and confirmed events as ICS.
func RoomCalendar(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		room, err := m.GetRoom(ctx, mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		events, err := m.ListEvents(ctx, models.EventFilter{RoomID: room.ID})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		io.WriteString(w, calendar.Feed(*room, events, time.Now()))
	}
}
