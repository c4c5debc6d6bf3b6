package parameter

import "time"

// Scope Contacts
const (
	// SandboxContactCount is the number of simulated contacts on the scope
	SandboxContactCount = 6

	// Contact speeds in scope cells per simulated second
	SandboxMinSpeed = 1.5
	SandboxMaxSpeed = 5.0

	// SandboxTrailLength is the retained history points per contact
	SandboxTrailLength = 14

	// SandboxLeaderSeconds is the velocity leader length in simulated seconds,
	// refreshed only on gated sweeps
	SandboxLeaderSeconds = 3.0

	// SandboxLookaheadSteps is the number of probe steps drawn per contact
	// during a lookahead
	SandboxLookaheadSteps = 6
)

// Scope Controls
const (
	// SandboxWarpStep is the timewarp change per keypress
	SandboxWarpStep = 0.5

	// Warp bounds enforced by the sandbox controls (the clock itself only
	// rejects non-positive values)
	SandboxMinWarp = 0.5
	SandboxMaxWarp = 50.0
)

// Sweep Tick Sound
const (
	SandboxTickFrequency = 880
	SandboxTickDuration  = 40 * time.Millisecond
)
