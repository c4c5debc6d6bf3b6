package engine

// System is a unit of per-frame simulation work driven by the Loop.
// Priority orders execution within a frame (lower runs first); Update is
// called exactly once per frame with that frame's tick.
type System interface {
	Priority() int
	Update(Tick)
}

// Tick is the per-frame view handed to systems before the frame closes
type Tick struct {
	// DeltaTime is the effective simulated seconds to absorb this frame
	// (zero while paused or stalled)
	DeltaTime float64

	// ShouldUpdate reports whether gated work runs this frame
	ShouldUpdate bool

	// Snapshot is the full clock state backing this frame
	Snapshot TimeSnapshot
}
