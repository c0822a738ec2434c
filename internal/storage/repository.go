package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrConfirmedOverlap is returned when a write would leave two confirmed
// events overlapping in the same room.
var ErrConfirmedOverlap = errors.New("storage: confirmed events overlap")

// ErrAssetInUse is returned when a device asset is already linked to
// another room.
var ErrAssetInUse = errors.New("storage: asset already linked to a room")

// BaseRepository provides common functionality for all repositories.
type BaseRepository struct {
	db *DB
}

// NewBaseRepository creates a new base repository with the given database connection.
func NewBaseRepository(db *DB) BaseRepository {
	return BaseRepository{db: db}
}

// DB returns the underlying database connection.
func (r *BaseRepository) DB() *DB {
	return r.db
}

// Now returns the current time for database timestamps.
func (r *BaseRepository) Now() time.Time {
	return Instant(time.Now())
}

// GenerateID creates a new random UUID for use as a primary key.
func GenerateID() string {
	return uuid.NewString()
}

// Instant normalizes t to the stored representation: UTC, whole seconds.
// Stored instants compare lexically, so every value written or used in a
// range predicate must pass through here.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// translateError maps constraint failures raised by the schema to
// package errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "confirmed_overlap"):
		return ErrConfirmedOverlap
	case strings.Contains(msg, "UNIQUE constraint failed: rooms.openremote_asset_id"):
		return ErrAssetInUse
	}
	return err
}
