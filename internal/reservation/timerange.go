// Package reservation holds the booking engine: conflict detection, the
// event lifecycle, device action derivation and schedule reconciliation.
package reservation

import (
	"time"

	"github.com/room-reservation-manager/backend/internal/storage"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Normalize converts t to the instant precision used by the store.
func Normalize(t time.Time) time.Time {
	return storage.Instant(t)
}
