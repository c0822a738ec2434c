package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/room-reservation-manager/backend/internal/api/middleware"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// SignatureHeader carries the HMAC-SHA256 of the raw callback body.
const SignatureHeader = "X-Signature"

// RoomLinkCallback applies a device binding pushed by the building
// automation side. The signature is checked against the raw body before
// anything is parsed.
func RoomLinkCallback(m *reservation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Failed to read request body")
			return
		}

		if err := m.VerifyRoomLink(body, r.Header.Get(SignatureHeader)); err != nil {
			writeServiceError(w, r, err)
			return
		}

		var link models.RoomLink
		if err := json.Unmarshal(body, &link); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		room, err := m.LinkRoom(r.Context(), link)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}
