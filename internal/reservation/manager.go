package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/room-reservation-manager/backend/internal/metrics"
	"github.com/room-reservation-manager/backend/internal/openremote"
	"github.com/room-reservation-manager/backend/internal/storage"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// CreateEventInput is the request to book a room. RoomID may carry either
// a room ID or a device asset ID; AssetID is tried when RoomID resolves to
// nothing.
type CreateEventInput struct {
	RoomID      string    `json:"roomId"`
	AssetID     string    `json:"assetId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
}

// UpdateEventInput is a partial edit. Nil fields keep their value.
type UpdateEventInput struct {
	RoomID      *string    `json:"roomId"`
	AssetID     *string    `json:"assetId"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Timezone    *string    `json:"timezone"`
}

// CreateRoomInput is the request to register a room.
type CreateRoomInput struct {
	Name             string  `json:"name"`
	AssetID          *string `json:"openremoteAssetId"`
	Timezone         *string `json:"timezone"`
	PowerAttribute   *string `json:"powerAttribute"`
	PowerLeadMinutes *int    `json:"powerLeadMinutes"`
}

// Manager drives events through their lifecycle:
//
//	pending -> confirmed (approve) | rejected (reject) | cancelled (cancel)
//	confirmed -> cancelled (cancel)
//
// Rejected and cancelled are terminal. Committed transitions to confirmed
// queue a schedule upsert, transitions to rejected or cancelled queue a
// removal. Queue failures never undo a transition.
type Manager struct {
	store    Store
	checker  *ConflictChecker
	queue    TaskQueue
	config   Config
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewManager creates a lifecycle manager. queue, notifier, logger and m
// may be nil; a nil queue disables pushes.
func NewManager(store Store, queue TaskQueue, cfg Config, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		checker:  NewConflictChecker(store),
		queue:    queue,
		config:   cfg,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Config returns the engine configuration.
func (m *Manager) Config() Config {
	return m.config
}

// CreateEvent books a room. The event starts pending unless the caller asks
// for confirmed, in which case the window must be free.
func (m *Manager) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.RoomID == "" && in.AssetID == "" {
		return nil, fmt.Errorf("%w: roomId or assetId is required", ErrValidation)
	}
	start, end, err := validateWindow(in.StartsAt, in.EndsAt)
	if err != nil {
		return nil, err
	}

	status := in.Status
	switch status {
	case "":
		status = models.EventStatusPending
	case models.EventStatusPending, models.EventStatusConfirmed:
	default:
		return nil, fmt.Errorf("%w: status must be pending or confirmed", ErrValidation)
	}

	room, err := m.resolveRoom(ctx, in.RoomID, in.AssetID)
	if err != nil {
		return nil, err
	}

	tz := in.Timezone
	if tz == "" && room.Timezone != nil {
		tz = *room.Timezone
	}
	if tz == "" {
		tz = m.config.timezone()
	}
	if err := validateTimezone(tz); err != nil {
		return nil, err
	}

	if status == models.EventStatusConfirmed {
		if err := m.ensureFree(ctx, room.ID, start, end, ""); err != nil {
			return nil, err
		}
	}

	ev := &models.Event{
		RoomID:      room.ID,
		Title:       title,
		Description: in.Description,
		StartsAt:    start,
		EndsAt:      end,
		Timezone:    tz,
		Status:      status,
	}
	if err := m.store.CreateEvent(ctx, ev); err != nil {
		return nil, m.storeError(err, "creating event")
	}

	m.logger.Info("event created", "event_id", ev.ID, "room_id", room.ID, "status", ev.Status)
	m.metrics.ObserveTransition(ev.Status)
	m.notifier.EventChanged(EventChange{Kind: ChangeCreated, Event: *ev})

	if ev.IsConfirmed() {
		m.pushSchedule(*ev, *room)
	}
	return ev, nil
}

// UpdateEvent edits a pending or confirmed event. Moving a confirmed event
// in time or to another room re-runs the conflict check. Every successful
// edit of a confirmed event re-pushes its schedule.
func (m *Manager) UpdateEvent(ctx context.Context, id string, in UpdateEventInput) (*models.Event, error) {
	ev, err := m.activeEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *ev

	room, err := m.roomForEvent(ctx, ev.RoomID)
	if err != nil {
		return nil, err
	}
	if in.RoomID != nil || in.AssetID != nil {
		room, err = m.resolveRoom(ctx, deref(in.RoomID), deref(in.AssetID))
		if err != nil {
			return nil, err
		}
		ev.RoomID = room.ID
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		ev.Title = title
	}
	if in.Description != nil {
		ev.Description = in.Description
	}
	if in.Timezone != nil {
		if err := validateTimezone(*in.Timezone); err != nil {
			return nil, err
		}
		ev.Timezone = *in.Timezone
	}

	start, end := ev.StartsAt, ev.EndsAt
	if in.StartsAt != nil {
		start = *in.StartsAt
	}
	if in.EndsAt != nil {
		end = *in.EndsAt
	}
	if ev.StartsAt, ev.EndsAt, err = validateWindow(start, end); err != nil {
		return nil, err
	}

	moved := ev.RoomID != prev.RoomID || !ev.StartsAt.Equal(prev.StartsAt) || !ev.EndsAt.Equal(prev.EndsAt)
	if ev.IsConfirmed() && moved {
		if err := m.ensureFree(ctx, ev.RoomID, ev.StartsAt, ev.EndsAt, ev.ID); err != nil {
			return nil, err
		}
	}

	ok, err := m.store.UpdateEvent(ctx, ev)
	if err != nil {
		return nil, m.storeError(err, "updating event")
	}
	if !ok {
		return nil, fmt.Errorf("%w: event %s changed status concurrently", ErrNotFound, id)
	}

	m.logger.Info("event updated", "event_id", ev.ID, "room_id", ev.RoomID, "status", ev.Status)
	m.notifier.EventChanged(EventChange{Kind: ChangeUpdated, PreviousStatus: prev.Status, Event: *ev})

	if ev.IsConfirmed() {
		if room.HasDevice() {
			m.pushSchedule(*ev, *room)
		} else if ev.RoomID != prev.RoomID {
			m.removeSchedule(ev.ID)
		}
	}
	return ev, nil
}

// ApproveEvent confirms a pending event if its window is still free.
func (m *Manager) ApproveEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.pendingEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	room, err := m.roomForEvent(ctx, ev.RoomID)
	if err != nil {
		return nil, err
	}

	if err := m.ensureFree(ctx, ev.RoomID, ev.StartsAt, ev.EndsAt, ev.ID); err != nil {
		return nil, err
	}

	ev, err = m.transition(ctx, ev, models.EventStatusConfirmed, ChangeApproved, models.EventStatusPending)
	if err != nil {
		return nil, err
	}

	m.pushSchedule(*ev, *room)
	return ev, nil
}

// RejectEvent declines a pending event and removes any pushed schedule.
func (m *Manager) RejectEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.pendingEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err = m.transition(ctx, ev, models.EventStatusRejected, ChangeRejected, models.EventStatusPending)
	if err != nil {
		return nil, err
	}

	m.removeSchedule(ev.ID)
	return ev, nil
}

// CancelEvent withdraws a pending or confirmed event. Events are never
// deleted; cancellation is their soft delete.
func (m *Manager) CancelEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.activeEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err = m.transition(ctx, ev, models.EventStatusCancelled, ChangeCancelled,
		models.EventStatusPending, models.EventStatusConfirmed)
	if err != nil {
		return nil, err
	}

	m.removeSchedule(ev.ID)
	return ev, nil
}

// GetEvent returns an event in any status.
func (m *Manager) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return ev, nil
}

// ListEvents returns events matching the filter ordered by start. A window
// selects events that intersect [From, To).
func (m *Manager) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	if filter.Status != "" && !models.ValidEventStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrValidation)
	}

	events, err := m.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// CreateRoom registers a room.
func (m *Manager) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateBinding(in.Timezone, in.PowerLeadMinutes); err != nil {
		return nil, err
	}

	room := &models.Room{
		Name:             name,
		AssetID:          nonEmpty(in.AssetID),
		Timezone:         nonEmpty(in.Timezone),
		PowerAttribute:   nonEmpty(in.PowerAttribute),
		PowerLeadMinutes: in.PowerLeadMinutes,
	}
	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, m.storeError(err, "creating room")
	}

	m.logger.Info("room created", "room_id", room.ID, "name", room.Name)
	return room, nil
}

// GetRoom returns a room by ID.
func (m *Manager) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := m.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, id)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (m *Manager) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := m.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

// VerifyRoomLink authenticates a raw room-link callback body. Without a
// configured secret every callback is accepted.
func (m *Manager) VerifyRoomLink(body []byte, signature string) error {
	if m.config.WebhookSecret == "" {
		return nil
	}
	if err := openremote.VerifySignature([]byte(m.config.WebhookSecret), body, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return nil
}

// LinkRoom applies a device binding reported by the building-automation
// side. Only the fields present in link are written.
func (m *Manager) LinkRoom(ctx context.Context, link models.RoomLink) (*models.Room, error) {
	if link.RoomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	link.AssetID = nonEmpty(link.AssetID)
	link.Timezone = nonEmpty(link.Timezone)
	link.PowerAttribute = nonEmpty(link.PowerAttribute)
	if err := validateBinding(link.Timezone, link.PowerLeadMinutes); err != nil {
		return nil, err
	}

	room, err := m.store.UpdateRoomLink(ctx, link)
	if err != nil {
		return nil, m.storeError(err, "linking room")
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, link.RoomID)
	}

	m.logger.Info("room linked", "room_id", room.ID, "asset_id", deref(room.AssetID))
	m.notifier.RoomLinked(*room)
	return room, nil
}

// resolveRoom finds a room by ID or asset ID, then by asset ID alone.
func (m *Manager) resolveRoom(ctx context.Context, idOrAsset, assetID string) (*models.Room, error) {
	if idOrAsset != "" {
		room, err := m.store.GetRoom(ctx, idOrAsset)
		if err != nil {
			return nil, err
		}
		if room != nil {
			return room, nil
		}
		if room, err = m.store.GetRoomByAsset(ctx, idOrAsset); err != nil || room != nil {
			return room, err
		}
	}
	if assetID != "" {
		room, err := m.store.GetRoomByAsset(ctx, assetID)
		if err != nil || room != nil {
			return room, err
		}
	}
	return nil, fmt.Errorf("%w: room not found", ErrNotFound)
}

func (m *Manager) roomForEvent(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	return room, nil
}

// activeEvent loads an event that is still pending or confirmed.
func (m *Manager) activeEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.IsTerminal() {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return ev, nil
}

func (m *Manager) pendingEvent(ctx context.Context, id string) (*models.Event, error) {
	ev, err := m.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.Status != models.EventStatusPending {
		return nil, fmt.Errorf("%w: pending event %s", ErrNotFound, id)
	}
	return ev, nil
}

// ensureFree fails with ErrConflict if a confirmed event holds the window.
func (m *Manager) ensureFree(ctx context.Context, roomID string, start, end time.Time, excludeID string) error {
	conflict, err := m.checker.FindConflict(ctx, roomID, start, end, excludeID)
	if err != nil {
		return err
	}
	if conflict != nil {
		m.metrics.ObserveConflict()
		return fmt.Errorf("%w: overlaps confirmed event %s", ErrConflict, conflict.ID)
	}
	return nil
}

func (m *Manager) transition(ctx context.Context, ev *models.Event, to, kind string, from ...string) (*models.Event, error) {
	ok, err := m.store.TransitionEvent(ctx, ev.ID, to, from...)
	if err != nil {
		return nil, m.storeError(err, "updating event status")
	}
	if !ok {
		return nil, fmt.Errorf("%w: event %s is no longer %s", ErrNotFound, ev.ID, strings.Join(from, " or "))
	}

	prev := ev.Status
	updated := *ev
	updated.Status = to
	updated.UpdatedAt = Normalize(time.Now())

	m.logger.Info("event status changed", "event_id", ev.ID, "from", prev, "to", to)
	m.metrics.ObserveTransition(to)
	m.notifier.EventChanged(EventChange{Kind: kind, PreviousStatus: prev, Event: updated})
	return &updated, nil
}

func (m *Manager) pushSchedule(ev models.Event, room models.Room) {
	if !m.config.PushEnabled || m.queue == nil {
		return
	}
	s, ok := BuildSchedule(ev, room, m.config)
	if !ok {
		m.logger.Debug("room has no device, skipping push", "event_id", ev.ID, "room_id", room.ID)
		return
	}
	m.queue.Enqueue(PushTask{Op: OpUpsert, EventID: ev.ID, Schedule: s})
}

func (m *Manager) removeSchedule(eventID string) {
	if !m.config.PushEnabled || m.queue == nil {
		return
	}
	m.queue.Enqueue(PushTask{Op: OpRemove, EventID: eventID})
}

// storeError maps store constraint failures onto domain errors.
func (m *Manager) storeError(err error, op string) error {
	switch {
	case errors.Is(err, storage.ErrConfirmedOverlap):
		m.metrics.ObserveConflict()
		return fmt.Errorf("%w: overlaps a confirmed event", ErrConflict)
	case errors.Is(err, storage.ErrAssetInUse):
		return fmt.Errorf("%w: asset already linked to another room", ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validateWindow(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return start, end, fmt.Errorf("%w: startsAt and endsAt are required", ErrValidation)
	}
	start, end = Normalize(start), Normalize(end)
	if !start.Before(end) {
		return start, end, fmt.Errorf("%w: startsAt must be before endsAt", ErrValidation)
	}
	return start, end, nil
}

func validateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("%w: timezone must not be empty", ErrValidation)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrValidation, tz)
	}
	return nil
}

func validateBinding(tz *string, lead *int) error {
	if tz != nil && *tz != "" {
		if err := validateTimezone(*tz); err != nil {
			return err
		}
	}
	if lead != nil && *lead < 0 {
		return fmt.Errorf("%w: powerLeadMinutes must not be negative", ErrValidation)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
