// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/room-reservation-manager/backend/internal/api/handlers"
	"github.com/room-reservation-manager/backend/internal/api/middleware"
	"github.com/room-reservation-manager/backend/internal/metrics"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage"
	"github.com/room-reservation-manager/backend/internal/websocket"
)

// Services are the components the router dispatches to. Metrics, Logger
// and the status sources other than the store may be nil.
type Services struct {
	DB         *storage.DB
	Store      *storage.Store
	Manager    *reservation.Manager
	Hub        *websocket.Hub
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Queue      handlers.Queue
	Dispatcher handlers.Sweeper
	Scheduler  handlers.Pinger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(s.Logger))
	r.Use(middleware.Metrics(s.Metrics))
	r.Use(middleware.ErrorRecovery(s.Logger))

	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB)).Methods(http.MethodGet)
	api.HandleFunc("/status", handlers.Status(handlers.StatusSources{
		Store:      s.Store,
		Hub:        s.Hub,
		Queue:      s.Queue,
		Dispatcher: s.Dispatcher,
		Scheduler:  s.Scheduler,
		PushOn:     s.Manager.Config().PushEnabled,
	})).Methods(http.MethodGet)

	// WebSocket endpoint
	if s.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods(http.MethodGet)
	}

	// Room endpoints
	api.HandleFunc("/rooms", handlers.ListRooms(s.Manager)).Methods(http.MethodGet)
	api.HandleFunc("/rooms", handlers.CreateRoom(s.Manager)).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}", handlers.GetRoom(s.Manager)).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/calendar.ics", handlers.RoomCalendar(s.Manager)).Methods(http.MethodGet)

	// Event endpoints
	api.HandleFunc("/events", handlers.ListEvents(s.Manager)).Methods(http.MethodGet)
	api.HandleFunc("/events", handlers.CreateEvent(s.Manager)).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", handlers.GetEvent(s.Manager)).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", handlers.UpdateEvent(s.Manager)).Methods(http.MethodPatch)
	api.HandleFunc("/events/{id}", handlers.CancelEvent(s.Manager)).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}/approve", handlers.ApproveEvent(s.Manager)).Methods(http.MethodPatch)
	api.HandleFunc("/events/{id}/reject", handlers.RejectEvent(s.Manager)).Methods(http.MethodPatch)

	// Integration callbacks
	api.HandleFunc("/integrations/openremote/rooms", handlers.RoomLinkCallback(s.Manager)).Methods(http.MethodPost)

	return r
}
