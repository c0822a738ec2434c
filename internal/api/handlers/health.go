// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage"
	"github.com/room-reservation-manager/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"dbConnected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// Pinger reports whether the external scheduler answers.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Queue reports the number of pushes waiting for a worker.
type Queue interface {
	Pending() int
}

// Sweeper exposes the reconciliation schedule.
type Sweeper interface {
	NextRun() time.Time
	LastSweep() (time.Time, reservation.SweepResult)
}

// StatusSources collects what the status endpoint reports on. Nil sources
// are reported as absent.
type StatusSources struct {
	Store      *storage.Store
	Hub        *websocket.Hub
	Queue      Queue
	Dispatcher Sweeper
	Scheduler  Pinger
	PushOn     bool
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	RoomsCount         int                      `json:"roomsCount"`
	EventsByStatus     map[string]int           `json:"eventsByStatus"`
	PushEnabled        bool                     `json:"pushEnabled"`
	SchedulerReachable *bool                    `json:"schedulerReachable,omitempty"`
	PendingPushes      int                      `json:"pendingPushes"`
	NextSweepAt        *time.Time               `json:"nextSweepAt,omitempty"`
	LastSweepAt        *time.Time               `json:"lastSweepAt,omitempty"`
	LastSweep          *reservation.SweepResult `json:"lastSweep,omitempty"`
	WebSocketClients   int                      `json:"websocketClients"`
}

// Status returns a handler that provides system status information.
func Status(src StatusSources) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rooms, err := src.Store.CountRooms(ctx)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		byStatus, err := src.Store.CountEventsByStatus(ctx)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := StatusResponse{
			RoomsCount:     rooms,
			EventsByStatus: byStatus,
			PushEnabled:    src.PushOn,
		}
		if src.Scheduler != nil {
			ok := src.Scheduler.Ping(ctx)
			resp.SchedulerReachable = &ok
		}
		if src.Queue != nil {
			resp.PendingPushes = src.Queue.Pending()
		}
		if src.Dispatcher != nil {
			if next := src.Dispatcher.NextRun(); !next.IsZero() {
				resp.NextSweepAt = &next
			}
			if at, result := src.Dispatcher.LastSweep(); !at.IsZero() {
				resp.LastSweepAt = &at
				resp.LastSweep = &result
			}
		}
		if src.Hub != nil {
			resp.WebSocketClients = src.Hub.ClientCount()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
