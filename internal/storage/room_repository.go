package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

const roomColumns = `id, name, openremote_asset_id, timezone, power_attribute,
	power_lead_minutes, openremote_linked_at, created_at, updated_at`

// RoomRepository provides data access for rooms.
type RoomRepository struct {
	BaseRepository
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	room.ID = GenerateID()
	room.CreatedAt = r.Now()
	room.UpdatedAt = room.CreatedAt

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		room.ID, room.Name, room.AssetID, room.Timezone, room.PowerAttribute,
		room.PowerLeadMinutes, room.LinkedAt, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		if err := translateError(err); err == ErrAssetInUse {
			return err
		}
		return fmt.Errorf("inserting room: %w", err)
	}

	return nil
}

// GetRoom retrieves a room by its ID. Returns nil if absent.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	row := r.DB().QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return room, nil
}

// GetRoomByAsset retrieves the room linked to an external asset. Returns nil if absent.
func (r *RoomRepository) GetRoomByAsset(ctx context.Context, assetID string) (*models.Room, error) {
	row := r.DB().QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE openremote_asset_id = ?`, assetID)
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying room by asset: %w", err)
	}
	return room, nil
}

// ListRooms retrieves all rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.DB().QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// UpdateRoomLink applies a partial device binding to a room and stamps
// the link time. Returns nil if the room does not exist.
func (r *RoomRepository) UpdateRoomLink(ctx context.Context, link models.RoomLink) (*models.Room, error) {
	now := r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE rooms SET
			openremote_asset_id = COALESCE(?, openremote_asset_id),
			timezone = COALESCE(?, timezone),
			power_attribute = COALESCE(?, power_attribute),
			power_lead_minutes = COALESCE(?, power_lead_minutes),
			openremote_linked_at = ?,
			updated_at = ?
		WHERE id = ?
	`, link.AssetID, link.Timezone, link.PowerAttribute, link.PowerLeadMinutes, now, now, link.RoomID)
	if err != nil {
		if err := translateError(err); err == ErrAssetInUse {
			return nil, err
		}
		return nil, fmt.Errorf("updating room link: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}

	return r.GetRoom(ctx, link.RoomID)
}

// CountRooms returns the number of rooms.
func (r *RoomRepository) CountRooms(ctx context.Context) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rooms: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		room     models.Room
		leadMins sql.NullInt64
	)
	if err := row.Scan(
		&room.ID, &room.Name, &room.AssetID, &room.Timezone, &room.PowerAttribute,
		&leadMins, &room.LinkedAt, &room.CreatedAt, &room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if leadMins.Valid {
		v := int(leadMins.Int64)
		room.PowerLeadMinutes = &v
	}
	return &room, nil
}
