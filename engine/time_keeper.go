package engine

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/TommyC81/openscope/parameter"
	"github.com/TommyC81/openscope/vmath"
)

// TimeKeeper advances simulated game time independently of wall-clock
// rendering. It applies a timewarp multiplier to real frame gaps, gates
// dependent work to a cadence derived from the warp, and supports a
// future-track override that freezes normal bookkeeping while lookahead
// code runs a fixed probe step.
//
// Not safe for concurrent use: one goroutine (the frame loop) must own
// every call. Cross-goroutine reads go through the loop's published
// metrics, not through this type.
type TimeKeeper struct {
	provider TimeProvider
	logger   *zap.Logger

	// Wall-clock anchors
	start          time.Time // provider time at construction/reset
	frameStartTime time.Time // start of the current frame window
	lastFrameTime  time.Time // provider time at the previous Update

	// Frame bookkeeping
	elapsedFrameCount    int64   // completed update cycles since reset
	frameDeltaTime       float64 // real seconds since the previous frame
	accumulatedDeltaTime float64 // total effective simulated seconds, never decreases

	// Dilation and cadence
	timewarp  float64 // real-to-simulated multiplier, always positive
	frameStep int     // gating modulus, derived from timewarp only

	paused bool

	// Future-track override: while active, frameDeltaTime is forced to the
	// probe value and Update is a no-op; cachedFrameDelta holds the real
	// delta for restoration when the session closes
	futureTrackActive bool
	cachedFrameDelta  float64
}

// NewTimeKeeper creates a clock anchored at the provider's current time.
// A nil provider defaults to the monotonic wall clock; a nil logger is
// replaced with a no-op logger. One instance drives one simulation run.
func NewTimeKeeper(provider TimeProvider, logger *zap.Logger) *TimeKeeper {
	if provider == nil {
		provider = NewMonotonicTimeProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	now := provider.Now()
	tk := &TimeKeeper{
		provider:       provider,
		logger:         logger,
		start:          now,
		frameStartTime: now,
		lastFrameTime:  now,
		timewarp:       parameter.DefaultTimewarp,
	}
	tk.recomputeFrameStep()
	return tk
}

// Reset re-anchors the wall-clock origin and zeroes the frame bookkeeping.
// Timewarp, pause state, accumulated time and any open future-track
// session survive a reset.
func (tk *TimeKeeper) Reset() {
	now := tk.provider.Now()
	tk.start = now
	tk.frameStartTime = now
	tk.lastFrameTime = now
	tk.elapsedFrameCount = 0
	tk.frameDeltaTime = 0

	tk.logger.Debug("clock reset", zap.Time("origin", now))
}

// Update closes the current frame. The frame loop calls it exactly once
// per rendered frame, after every consumer of this frame's deltas has run.
// While a future-track session is open the call is a no-op, so lookahead
// work cannot disturb the real bookkeeping.
func (tk *TimeKeeper) Update() {
	if tk.futureTrackActive {
		return
	}

	tk.elapsedFrameCount++

	now := tk.provider.Now()
	tk.frameDeltaTime = now.Sub(tk.lastFrameTime).Seconds()
	tk.lastFrameTime = now

	// Window marker only; nothing downstream reads the re-anchor
	if now.Sub(tk.frameStartTime).Seconds() > parameter.FrameWindowSeconds {
		tk.frameStartTime = now
	}

	tk.accumulatedDeltaTime += tk.EffectiveDeltaTime()
	tk.recomputeFrameStep()
}

// DeltaTime returns the simulated seconds for this frame: the real
// inter-frame gap scaled by the timewarp, hard-capped to bound spikes
// from debugger pauses or machine suspends.
func (tk *TimeKeeper) DeltaTime() float64 {
	return math.Min(tk.frameDeltaTime*tk.timewarp, parameter.DeltaTimeCapSeconds)
}

// EffectiveDeltaTime returns the simulated seconds the simulation should
// absorb this frame. Paused frames contribute nothing. A gap of one real
// second or more at normal speed is treated as a stall (tab backgrounding)
// rather than elapsed play, unless a future-track probe is in effect.
func (tk *TimeKeeper) EffectiveDeltaTime() float64 {
	if tk.paused {
		return 0
	}
	if tk.DeltaTime() >= parameter.StallSuppressSeconds && tk.timewarp == 1 && !tk.futureTrackActive {
		return 0
	}
	return tk.DeltaTime()
}

// SetTimewarp replaces the time dilation factor. Zero, negative and
// non-finite values are rejected with ErrInvalidTimewarp and leave the
// current factor untouched. The frame step follows on the next Update.
func (tk *TimeKeeper) SetTimewarp(next float64) error {
	if math.IsNaN(next) || math.IsInf(next, 0) || next <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimewarp, next)
	}

	prev := tk.timewarp
	tk.timewarp = next

	tk.logger.Debug("timewarp changed",
		zap.Float64("from", prev),
		zap.Float64("to", next))
	return nil
}

// TogglePause flips the pause flag. Accumulation stops or resumes on the
// next Update; no other state changes.
func (tk *TimeKeeper) TogglePause() {
	tk.paused = !tk.paused
	tk.logger.Debug("pause toggled", zap.Bool("paused", tk.paused))
}

// ShouldUpdate reports whether gated subsystems run their expensive work
// this frame. True exactly when the frame count is a multiple of the
// current frame step.
func (tk *TimeKeeper) ShouldUpdate() bool {
	step := tk.frameStep
	if step < 1 {
		// Derivation keeps the step in [1,30]; anything lower means the
		// invariant was broken elsewhere
		tk.logger.Error("frame step below 1, treating as 1",
			zap.Int("frame_step", step))
		step = 1
	}
	return tk.elapsedFrameCount%int64(step) == 0
}

// BeginFutureTrack opens a lookahead session: the current frame delta is
// cached and replaced with the fixed probe step so dependent code can run
// one synthetic big step. Sessions do not nest.
func (tk *TimeKeeper) BeginFutureTrack() error {
	if tk.futureTrackActive {
		return ErrFutureTrackActive
	}

	tk.cachedFrameDelta = tk.frameDeltaTime
	tk.frameDeltaTime = parameter.FutureTrackProbeSeconds
	tk.futureTrackActive = true

	tk.logger.Debug("future track opened",
		zap.Float64("cached_delta", tk.cachedFrameDelta),
		zap.Float64("probe", parameter.FutureTrackProbeSeconds))
	return nil
}

// EndFutureTrack closes the lookahead session and restores the cached
// frame delta, re-arming normal Update behavior.
func (tk *TimeKeeper) EndFutureTrack() error {
	if !tk.futureTrackActive {
		return ErrFutureTrackInactive
	}

	tk.frameDeltaTime = tk.cachedFrameDelta
	tk.cachedFrameDelta = 0
	tk.futureTrackActive = false

	tk.logger.Debug("future track closed",
		zap.Float64("restored_delta", tk.frameDeltaTime))
	return nil
}

// RunFutureTrack runs fn inside a matched future-track session so callers
// cannot leave the clock frozen by forgetting the closing call.
func (tk *TimeKeeper) RunFutureTrack(fn func()) error {
	if err := tk.BeginFutureTrack(); err != nil {
		return err
	}
	// Restore bookkeeping even if fn panics
	defer func() { _ = tk.EndFutureTrack() }()

	fn()
	return nil
}

// recomputeFrameStep re-derives the gating modulus from the current
// timewarp. Higher warps produce smaller steps so gated work keeps pace
// with the faster simulation.
func (tk *TimeKeeper) recomputeFrameStep() {
	tk.frameStep = vmath.RoundToInt(vmath.ExtrapolateRangeClamp(
		tk.timewarp,
		parameter.CadenceTimewarpMin, parameter.CadenceTimewarpMax,
		parameter.CadenceFrameStepMax, parameter.CadenceFrameStepMin,
	))
}

// ElapsedFrameCount returns the completed update cycles since the last reset
func (tk *TimeKeeper) ElapsedFrameCount() int64 {
	return tk.elapsedFrameCount
}

// FrameDeltaTime returns the unscaled real seconds between the two most
// recent frames (the probe value while a future-track session is open)
func (tk *TimeKeeper) FrameDeltaTime() float64 {
	return tk.frameDeltaTime
}

// AccumulatedDeltaTime returns the total simulated seconds applied so far
func (tk *TimeKeeper) AccumulatedDeltaTime() float64 {
	return tk.accumulatedDeltaTime
}

// Timewarp returns the current dilation factor
func (tk *TimeKeeper) Timewarp() float64 {
	return tk.timewarp
}

// FrameStep returns the current gating modulus
func (tk *TimeKeeper) FrameStep() int {
	return tk.frameStep
}

// IsPaused returns the pause flag
func (tk *TimeKeeper) IsPaused() bool {
	return tk.paused
}

// FutureTrackActive reports whether a lookahead session is open
func (tk *TimeKeeper) FutureTrackActive() bool {
	return tk.futureTrackActive
}

// TimeSnapshot is an immutable view of the clock for render and UI code
// It is captured once per frame and handed to systems through their tick
type TimeSnapshot struct {
	// FrameCount is the completed update cycles since reset
	FrameCount int64

	// FrameDeltaTime is the unscaled real seconds since the previous frame
	FrameDeltaTime float64

	// DeltaTime is the warp-scaled, capped simulated seconds for this frame
	DeltaTime float64

	// EffectiveDeltaTime is the simulated seconds the simulation absorbs
	// this frame (zero while paused or stalled)
	EffectiveDeltaTime float64

	// AccumulatedDeltaTime is the total simulated seconds applied so far
	AccumulatedDeltaTime float64

	// Timewarp is the current dilation factor
	Timewarp float64

	// FrameStep is the current gating modulus
	FrameStep int

	// Paused reports whether accumulation is suspended
	Paused bool

	// FutureTrackActive reports whether a lookahead session is open
	FutureTrackActive bool
}

// Snapshot captures the current clock state as one consistent value
func (tk *TimeKeeper) Snapshot() TimeSnapshot {
	return TimeSnapshot{
		FrameCount:           tk.elapsedFrameCount,
		FrameDeltaTime:       tk.frameDeltaTime,
		DeltaTime:            tk.DeltaTime(),
		EffectiveDeltaTime:   tk.EffectiveDeltaTime(),
		AccumulatedDeltaTime: tk.accumulatedDeltaTime,
		Timewarp:             tk.timewarp,
		FrameStep:            tk.frameStep,
		Paused:               tk.paused,
		FutureTrackActive:    tk.futureTrackActive,
	}
}
