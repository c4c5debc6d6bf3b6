package engine

import "time"

// TimeProvider supplies the current wall-clock time to the clock machinery
// Implementations must return non-decreasing readings; the TimeKeeper derives
// every frame delta from successive Now() calls
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider provides the real system time with monotonic clock readings
// Frame deltas computed from its readings are immune to wall-clock adjustments
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates a new monotonic time provider
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}
