package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/TommyC81/openscope/parameter"
	"github.com/TommyC81/openscope/status"
)

// controlQueueSize bounds pending cross-goroutine control closures
const controlQueueSize = 64

// Loop drives a TimeKeeper at a fixed frame interval and fans each frame
// out to registered systems. It owns the keeper: every mutation happens on
// the loop goroutine, in the frame order the keeper's contract requires
// (consumers first, Update last). Other goroutines reach the keeper only
// through Control.
type Loop struct {
	tk     *TimeKeeper
	logger *zap.Logger

	interval time.Duration
	systems  []System

	// Control closures queued by other goroutines, drained before each frame
	controlChan chan func()

	// Lifecycle
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	// Cached metric pointers
	statusReg       *status.Registry
	statFrames      *atomic.Int64
	statSimSteps    *atomic.Int64
	statFrameStep   *atomic.Int64
	statPaused      *atomic.Bool
	statAccumulated *status.AtomicFloat
	statTimewarp    *status.AtomicFloat
}

// NewLoop creates a frame loop around tk, which must be non-nil.
// A nil registry gets a private one, a nil logger is replaced with a no-op
// logger, and a non-positive interval falls back to the default frame rate.
func NewLoop(tk *TimeKeeper, reg *status.Registry, logger *zap.Logger, interval time.Duration) *Loop {
	if reg == nil {
		reg = status.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = parameter.FrameUpdateInterval
	}

	return &Loop{
		tk:              tk,
		logger:          logger,
		interval:        interval,
		controlChan:     make(chan func(), controlQueueSize),
		stopChan:        make(chan struct{}),
		statusReg:       reg,
		statFrames:      reg.Ints.Get("clock.frames"),
		statSimSteps:    reg.Ints.Get("clock.sim_steps"),
		statFrameStep:   reg.Ints.Get("clock.frame_step"),
		statPaused:      reg.Bools.Get("clock.paused"),
		statAccumulated: reg.Floats.Get("clock.accumulated_sec"),
		statTimewarp:    reg.Floats.Get("clock.timewarp"),
	}
}

// Keeper returns the driven TimeKeeper. Outside the loop goroutine it is
// safe only before Start or after Stop.
func (l *Loop) Keeper() *TimeKeeper {
	return l.tk
}

// Registry returns the metrics registry the loop publishes into
func (l *Loop) Registry() *status.Registry {
	return l.statusReg
}

// AddSystem registers a system, must be called before Start()
func (l *Loop) AddSystem(s System) {
	l.systems = append(l.systems, s)
	sort.SliceStable(l.systems, func(i, j int) bool {
		return l.systems[i].Priority() < l.systems[j].Priority()
	})
}

// Control queues fn to run on the loop goroutine before the next frame.
// This is how other goroutines change timewarp or pause state between
// frames. Reports whether the closure was accepted (false when the queue
// is full or the loop has stopped accepting work).
func (l *Loop) Control(fn func()) bool {
	select {
	case l.controlChan <- fn:
		return true
	default:
		return false
	}
}

// Start begins the frame loop goroutine
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		l.wg.Add(1)
		go l.run()

		l.logger.Info("frame loop started",
			zap.Duration("interval", l.interval),
			zap.Int("systems", len(l.systems)))
	}
}

// Stop halts the frame loop and waits for the goroutine to exit
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.running.CompareAndSwap(true, false) {
			close(l.stopChan)
			l.wg.Wait()

			l.logger.Info("frame loop stopped",
				zap.Int64("frames", l.tk.ElapsedFrameCount()))
		}
	})
}

// run paces frames at the configured interval until stopped
func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Frame()
		}
	}
}

// Frame executes exactly one frame synchronously: drain queued control
// closures, hand the frame's tick to every system, close the frame on the
// keeper, publish metrics. Exported so tests and tools can step the clock
// deterministically; never call it while the loop is started.
func (l *Loop) Frame() {
	l.drainControl()

	tick := Tick{
		DeltaTime:    l.tk.EffectiveDeltaTime(),
		ShouldUpdate: l.tk.ShouldUpdate(),
		Snapshot:     l.tk.Snapshot(),
	}

	for _, s := range l.systems {
		s.Update(tick)
	}

	// End of frame: all consumers above have seen this frame's deltas
	l.tk.Update()

	l.publishMetrics(tick)
}

// drainControl runs every queued control closure on the loop goroutine
func (l *Loop) drainControl() {
	for {
		select {
		case fn := <-l.controlChan:
			fn()
		default:
			return
		}
	}
}

// publishMetrics pushes the post-update clock state into the registry
func (l *Loop) publishMetrics(tick Tick) {
	snap := l.tk.Snapshot()

	l.statFrames.Store(snap.FrameCount)
	if tick.ShouldUpdate {
		l.statSimSteps.Add(1)
	}
	l.statFrameStep.Store(int64(snap.FrameStep))
	l.statPaused.Store(snap.Paused)
	l.statAccumulated.Set(snap.AccumulatedDeltaTime)
	l.statTimewarp.Set(snap.Timewarp)
}
