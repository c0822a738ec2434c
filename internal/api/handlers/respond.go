package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/room-reservation-manager/backend/internal/api/middleware"
	"github.com/room-reservation-manager/backend/internal/reservation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps engine errors onto HTTP status codes. Anything not
// recognised is logged and reported as a 500 without its detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reservation.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
	case errors.Is(err, reservation.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, err.Error())
	case errors.Is(err, reservation.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, err.Error())
	case errors.Is(err, reservation.ErrAuthentication):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid signature")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
	}
}
