package parameter

import "time"

// Frame Loop Timing
const (
	// FrameUpdateInterval is the rendering frame rate interval (~60 FPS)
	FrameUpdateInterval = 16 * time.Millisecond

	// DefaultTimewarp is the time dilation factor at construction and after
	// a sandbox reset (real time and simulated time advance 1:1)
	DefaultTimewarp = 1.0
)

// Clock Contract Values
// These are contract constants of the simulation clock, not tunables;
// dependent subsystems rely on their exact values
const (
	// DeltaTimeCapSeconds hard-caps the scaled per-frame delta to bound
	// pathological spikes (debugger pause, machine suspend)
	DeltaTimeCapSeconds = 100.0

	// StallSuppressSeconds is the real-delta threshold above which a frame
	// gap at timewarp 1 is treated as a stall (tab backgrounding) and
	// contributes no simulated time
	StallSuppressSeconds = 1.0

	// FutureTrackProbeSeconds is the fixed synthetic frame delta forced
	// while a future-track override is in effect
	FutureTrackProbeSeconds = 5.0

	// FrameWindowSeconds is the age at which the frame window marker is
	// re-anchored to the current time during an update
	FrameWindowSeconds = 1.0
)

// Frame-Step Cadence
// The timewarp is mapped linearly from [CadenceTimewarpMin, CadenceTimewarpMax]
// onto the descending [CadenceFrameStepMax, CadenceFrameStepMin] and clamped,
// so a higher timewarp yields a smaller step (dependent work runs more often)
const (
	// CadenceTimewarpMin is the timewarp at or below which the cadence is sparsest
	CadenceTimewarpMin = 1.0

	// CadenceTimewarpMax is the timewarp at or above which the cadence is every frame
	CadenceTimewarpMax = 10.0

	// CadenceFrameStepMax is the frame step produced at CadenceTimewarpMin
	CadenceFrameStepMax = 30.0

	// CadenceFrameStepMin is the frame step produced at CadenceTimewarpMax
	CadenceFrameStepMin = 1.0
)
