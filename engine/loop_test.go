package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TommyC81/openscope/parameter"
	"github.com/TommyC81/openscope/status"
)

// funcSystem adapts a closure to the System interface for tests
type funcSystem struct {
	priority int
	fn       func(Tick)
}

func (s *funcSystem) Priority() int    { return s.priority }
func (s *funcSystem) Update(tick Tick) { s.fn(tick) }

// TestLoop_Defaults tests constructor normalization of optional arguments.
func TestLoop_Defaults(t *testing.T) {
	tk, _ := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	require.NotNil(t, loop.Registry())
	assert.Same(t, tk, loop.Keeper())
	assert.Equal(t, parameter.FrameUpdateInterval, loop.interval)
}

// TestLoop_FrameOrder tests that systems observe the frame before the
// keeper closes it.
func TestLoop_FrameOrder(t *testing.T) {
	tk, _ := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	keeperCountDuringFrame := int64(-1)
	tickFrameCount := int64(-1)
	loop.AddSystem(&funcSystem{priority: 1, fn: func(tick Tick) {
		keeperCountDuringFrame = tk.ElapsedFrameCount()
		tickFrameCount = tick.Snapshot.FrameCount
	}})

	loop.Frame()

	assert.Equal(t, int64(0), keeperCountDuringFrame, "Update must not run before systems")
	assert.Equal(t, int64(0), tickFrameCount)
	assert.Equal(t, int64(1), tk.ElapsedFrameCount(), "frame must close after systems ran")
}

// TestLoop_SystemPriorityOrder tests priority-sorted system execution.
func TestLoop_SystemPriorityOrder(t *testing.T) {
	tk, _ := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	var order []string
	loop.AddSystem(&funcSystem{priority: 10, fn: func(Tick) { order = append(order, "late") }})
	loop.AddSystem(&funcSystem{priority: 1, fn: func(Tick) { order = append(order, "early") }})
	loop.AddSystem(&funcSystem{priority: 5, fn: func(Tick) { order = append(order, "middle") }})

	loop.Frame()

	assert.Equal(t, []string{"early", "middle", "late"}, order)
}

// TestLoop_TickCarriesEffectiveDelta tests the delta systems receive.
func TestLoop_TickCarriesEffectiveDelta(t *testing.T) {
	tk, mock := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	var deltas []float64
	loop.AddSystem(&funcSystem{priority: 1, fn: func(tick Tick) {
		deltas = append(deltas, tick.DeltaTime)
	}})

	// Nothing has elapsed when the first frame renders
	mock.Advance(16 * time.Millisecond)
	loop.Frame()
	// The second frame consumes the gap measured by the first close
	mock.Advance(16 * time.Millisecond)
	loop.Frame()

	require.Len(t, deltas, 2)
	assert.Zero(t, deltas[0])
	assert.InDelta(t, 0.016, deltas[1], 1e-9)
}

// TestLoop_ControlRunsBeforeFrame tests control closure scheduling.
func TestLoop_ControlRunsBeforeFrame(t *testing.T) {
	tk, _ := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	var tickPaused bool
	loop.AddSystem(&funcSystem{priority: 1, fn: func(tick Tick) {
		tickPaused = tick.Snapshot.Paused
	}})

	require.True(t, loop.Control(func() { tk.TogglePause() }))
	loop.Frame()

	assert.True(t, tickPaused, "control must apply before the frame's tick is built")
	assert.True(t, tk.IsPaused())
}

// TestLoop_ControlQueueBound tests the non-blocking enqueue contract.
func TestLoop_ControlQueueBound(t *testing.T) {
	tk, _ := newTestKeeper()
	loop := NewLoop(tk, nil, nil, 0)

	for i := 0; i < controlQueueSize; i++ {
		require.True(t, loop.Control(func() {}))
	}
	assert.False(t, loop.Control(func() {}), "full queue must reject, not block")

	// Draining makes room again
	loop.Frame()
	assert.True(t, loop.Control(func() {}))
}

// TestLoop_PublishesMetrics tests per-frame registry publication.
func TestLoop_PublishesMetrics(t *testing.T) {
	tk, mock := newTestKeeper()
	reg := status.NewRegistry()
	loop := NewLoop(tk, reg, nil, 0)

	require.NoError(t, tk.SetTimewarp(10))

	for i := 0; i < 3; i++ {
		mock.Advance(16 * time.Millisecond)
		loop.Frame()
	}

	assert.Equal(t, int64(3), reg.Ints.Get("clock.frames").Load())
	// Frame 1 gates at count 0 (step 30); warp 10 then derives step 1, so
	// frames 2 and 3 gate as well
	assert.Equal(t, int64(3), reg.Ints.Get("clock.sim_steps").Load())
	assert.Equal(t, int64(1), reg.Ints.Get("clock.frame_step").Load())
	assert.False(t, reg.Bools.Get("clock.paused").Load())
	assert.Equal(t, 10.0, reg.Floats.Get("clock.timewarp").Get())
	// First close still sees warp 10 applied to the 16ms gap
	assert.InDelta(t, 3*0.16, reg.Floats.Get("clock.accumulated_sec").Get(), 1e-9)
}

// TestLoop_GatedStepCounting tests sim step counting under the sparse cadence.
func TestLoop_GatedStepCounting(t *testing.T) {
	tk, mock := newTestKeeper()
	reg := status.NewRegistry()
	loop := NewLoop(tk, reg, nil, 0)

	// Warp 1 keeps step 30: only the first tick (count 0) gates in 10 frames
	for i := 0; i < 10; i++ {
		mock.Advance(16 * time.Millisecond)
		loop.Frame()
	}

	assert.Equal(t, int64(10), reg.Ints.Get("clock.frames").Load())
	assert.Equal(t, int64(1), reg.Ints.Get("clock.sim_steps").Load())
	assert.Equal(t, int64(30), reg.Ints.Get("clock.frame_step").Load())
}

// TestLoop_StartStop tests the loop goroutine lifecycle.
func TestLoop_StartStop(t *testing.T) {
	tk := NewTimeKeeper(nil, nil)
	loop := NewLoop(tk, nil, nil, time.Millisecond)

	loop.Start()
	loop.Start() // second start is a no-op

	require.Eventually(t, func() bool {
		return loop.Registry().Ints.Get("clock.frames").Load() > 0
	}, time.Second, time.Millisecond, "loop must produce frames after start")

	loop.Stop()
	loop.Stop() // second stop is a no-op

	frames := loop.Registry().Ints.Get("clock.frames").Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frames, loop.Registry().Ints.Get("clock.frames").Load(),
		"no frames may run after stop returns")
}

// TestLoop_ControlAcrossGoroutines tests the cross-goroutine mutation path.
func TestLoop_ControlAcrossGoroutines(t *testing.T) {
	tk := NewTimeKeeper(nil, nil)
	reg := status.NewRegistry()
	loop := NewLoop(tk, reg, nil, time.Millisecond)

	loop.Start()
	defer loop.Stop()

	require.True(t, loop.Control(func() {
		_ = tk.SetTimewarp(2)
	}))

	require.Eventually(t, func() bool {
		return reg.Floats.Get("clock.timewarp").Get() == 2
	}, time.Second, time.Millisecond, "control closure must reach the keeper")
}
