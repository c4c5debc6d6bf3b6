package engine

import "errors"

// Error classes for clock operations.
// Use errors.Is() to check the class; wrapped messages carry the detail.
var (
	// ErrInvalidTimewarp indicates a rejected warp factor.
	// Warp must be a positive, finite number; the clock keeps its previous
	// factor when rejecting.
	ErrInvalidTimewarp = errors.New("invalid timewarp")

	// ErrFutureTrackActive indicates a future track session is already open.
	// Sessions do not nest; end the current one first.
	ErrFutureTrackActive = errors.New("future track already active")

	// ErrFutureTrackInactive indicates no future track session is open.
	ErrFutureTrackInactive = errors.New("future track not active")
)
