package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

const eventColumns = `id, room_id, title, description, starts_at, ends_at,
	timezone, status, created_at, updated_at`

// EventRepository provides data access for reservation events.
type EventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// CreateEvent inserts a new event. A confirmed event that overlaps another
// confirmed event in the same room fails with ErrConfirmedOverlap.
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = GenerateID()
	}
	event.StartsAt = Instant(event.StartsAt)
	event.EndsAt = Instant(event.EndsAt)
	event.CreatedAt = r.Now()
	event.UpdatedAt = event.CreatedAt

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.RoomID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Timezone, event.Status, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if err := translateError(err); err == ErrConfirmedOverlap {
			return err
		}
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// GetEvent retrieves an event by its ID. Returns nil if absent.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := r.DB().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return event, nil
}

// ListEvents retrieves events matching the filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.RoomID != "" {
		where = append(where, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		where = append(where, "ends_at > ?")
		args = append(args, Instant(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "starts_at < ?")
		args = append(args, Instant(filter.To))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY starts_at, id"

	return r.queryEvents(ctx, query, args...)
}

// UpdateEvent writes the editable fields of an event. The row is only
// touched while its status still equals event.Status, so an edit never
// resurrects an event that was cancelled meanwhile. Returns false if no
// row matched.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *models.Event) (bool, error) {
	event.StartsAt = Instant(event.StartsAt)
	event.EndsAt = Instant(event.EndsAt)
	event.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE events SET
			room_id = ?, title = ?, description = ?, starts_at = ?, ends_at = ?,
			timezone = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		event.RoomID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Timezone, event.UpdatedAt, event.ID, event.Status,
	)
	if err != nil {
		if err := translateError(err); err == ErrConfirmedOverlap {
			return false, err
		}
		return false, fmt.Errorf("updating event: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// TransitionEvent moves an event to status `to` only if its current status
// is one of `from`. It reports whether the row changed, so a concurrent
// transition of the same event loses cleanly.
func (r *EventRepository) TransitionEvent(ctx context.Context, id, to string, from ...string) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s: no source status", to)
	}

	args := []any{to, r.Now(), id}
	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, s)
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE events SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		if err := translateError(err); err == ErrConfirmedOverlap {
			return false, err
		}
		return false, fmt.Errorf("updating event status: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// FindConfirmedOverlaps returns confirmed events in the room whose interval
// intersects [start, end), ordered by start. excludeID, when set, is left out.
func (r *EventRepository) FindConfirmedOverlaps(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]models.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE room_id = ? AND status = ? AND id != ?
		  AND starts_at < ? AND ends_at > ?
		ORDER BY starts_at, id
	`, roomID, models.EventStatusConfirmed, excludeID, Instant(end), Instant(start))
}

// ListConfirmedInWindow returns confirmed events running at some point in
// [from, to] together with their rooms, ordered by start.
func (r *EventRepository) ListConfirmedInWindow(ctx context.Context, from, to time.Time) ([]models.EventWithRoom, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT
			e.id, e.room_id, e.title, e.description, e.starts_at, e.ends_at,
			e.timezone, e.status, e.created_at, e.updated_at,
			r.id, r.name, r.openremote_asset_id, r.timezone, r.power_attribute,
			r.power_lead_minutes, r.openremote_linked_at, r.created_at, r.updated_at
		FROM events e
		JOIN rooms r ON r.id = e.room_id
		WHERE e.status = ? AND e.starts_at <= ? AND e.ends_at >= ?
		ORDER BY e.starts_at, e.id
	`, models.EventStatusConfirmed, Instant(to), Instant(from))
	if err != nil {
		return nil, fmt.Errorf("querying confirmed events: %w", err)
	}
	defer rows.Close()

	var result []models.EventWithRoom
	for rows.Next() {
		var (
			ewr      models.EventWithRoom
			leadMins sql.NullInt64
		)
		e, rm := &ewr.Event, &ewr.Room
		if err := rows.Scan(
			&e.ID, &e.RoomID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
			&e.Timezone, &e.Status, &e.CreatedAt, &e.UpdatedAt,
			&rm.ID, &rm.Name, &rm.AssetID, &rm.Timezone, &rm.PowerAttribute,
			&leadMins, &rm.LinkedAt, &rm.CreatedAt, &rm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning confirmed event: %w", err)
		}
		if leadMins.Valid {
			v := int(leadMins.Int64)
			rm.PowerLeadMinutes = &v
		}
		result = append(result, ewr)
	}
	return result, rows.Err()
}

// CountEventsByStatus returns the number of events per status.
func (r *EventRepository) CountEventsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB().QueryContext(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	if err := row.Scan(
		&event.ID, &event.RoomID, &event.Title, &event.Description, &event.StartsAt, &event.EndsAt,
		&event.Timezone, &event.Status, &event.CreatedAt, &event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &event, nil
}
