package reservation

import "errors"

// Domain errors returned by Manager operations. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrValidation marks malformed or missing input, including start >= end.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent room or event, or an event whose status
	// does not allow the requested operation.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that would overlap a confirmed event in the
	// same room, or claim a device asset linked elsewhere.
	ErrConflict = errors.New("conflict")

	// ErrAuthentication marks a room-link callback whose signature does
	// not verify.
	ErrAuthentication = errors.New("authentication failed")
)
