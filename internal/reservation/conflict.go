package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/room-reservation-manager/backend/internal/storage/models"
)

// ConflictChecker detects confirmed events that already hold a room for
// part of a proposed window.
type ConflictChecker struct {
	events EventStore
}

// NewConflictChecker creates a new conflict checker.
func NewConflictChecker(events EventStore) *ConflictChecker {
	return &ConflictChecker{events: events}
}

// FindConflict returns the earliest confirmed event in roomID overlapping
// [start, end), ignoring excludeID, or nil if the window is free.
func (c *ConflictChecker) FindConflict(ctx context.Context, roomID string, start, end time.Time, excludeID string) (*models.Event, error) {
	start, end = Normalize(start), Normalize(end)

	candidates, err := c.events.FindConfirmedOverlaps(ctx, roomID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("checking conflicts: %w", err)
	}

	for i := range candidates {
		e := &candidates[i]
		if e.ID == excludeID || !e.IsConfirmed() {
			continue
		}
		if Overlaps(start, end, e.StartsAt, e.EndsAt) {
			return e, nil
		}
	}
	return nil, nil
}
