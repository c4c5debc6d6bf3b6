package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/TommyC81/openscope/engine"
	"github.com/TommyC81/openscope/parameter"
	"github.com/TommyC81/openscope/status"
	"github.com/TommyC81/openscope/vmath"
)

var (
	contactsFlag = flag.Int("contacts", parameter.SandboxContactCount, "Number of simulated contacts")
	logFlag      = flag.String("log", "", "Write debug logs to this file (the TUI owns stdout)")
)

// --- Visual Constants ---
var (
	styleContact   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleTrail     = tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	styleLeader    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleLookahead = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleRing      = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
	styleStatus    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePaused    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleMetrics   = tcell.StyleDefault.Foreground(tcell.ColorSilver).Dim(true)
	styleHelp      = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

var airlineCodes = []string{"AAL", "BAW", "DLH", "UAL", "AFR", "KLM", "SAS", "SWA"}

type point struct {
	x, y float64
}

// Contact is one simulated aircraft-like target on the scope
type Contact struct {
	callsign  string
	x, y      float64 // scope cells
	vx, vy    float64 // cells per simulated second
	trail     []point // history dots, pushed once per sweep, oldest first
	leader    point   // velocity leader endpoint, refreshed on sweeps
	predicted []point // future-track probe positions, one per step
}

// Sandbox owns the terminal and steps the frame loop deterministically on
// its own goroutine
type Sandbox struct {
	screen tcell.Screen
	width  int
	height int

	keeper   *engine.TimeKeeper
	loop     *engine.Loop
	registry *status.Registry
	logger   *zap.Logger

	contacts  []*Contact
	sweeps    int64
	audioInit bool
}

func newSandbox(logger *zap.Logger, contactCount int) (*Sandbox, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}

	s := &Sandbox{
		screen:   screen,
		keeper:   engine.NewTimeKeeper(nil, logger),
		registry: status.NewRegistry(),
		logger:   logger,
	}
	s.width, s.height = screen.Size()

	s.loop = engine.NewLoop(s.keeper, s.registry, logger, parameter.FrameUpdateInterval)
	s.loop.AddSystem(&contactSystem{s: s})
	s.loop.AddSystem(&sweepSystem{s: s})

	for i := 0; i < contactCount; i++ {
		s.contacts = append(s.contacts, s.spawnContact(i))
	}

	if err := s.initAudio(); err != nil {
		// Non-fatal, the scope runs silent
		logger.Warn("audio initialization failed", zap.Error(err))
	}

	return s, nil
}

func (s *Sandbox) spawnContact(n int) *Contact {
	speed := parameter.SandboxMinSpeed + rand.Float64()*(parameter.SandboxMaxSpeed-parameter.SandboxMinSpeed)
	heading := rand.Float64() * 2 * math.Pi

	c := &Contact{
		callsign: fmt.Sprintf("%s%d", airlineCodes[n%len(airlineCodes)], 100+rand.Intn(900)),
		x:        2 + rand.Float64()*float64(s.width-4),
		y:        2 + rand.Float64()*float64(s.height-7),
		vx:       math.Cos(heading) * speed,
		vy:       math.Sin(heading) * speed * 0.5, // cells are taller than wide
	}
	c.leader = point{
		x: c.x + c.vx*parameter.SandboxLeaderSeconds,
		y: c.y + c.vy*parameter.SandboxLeaderSeconds,
	}
	return c
}

func (s *Sandbox) initAudio() error {
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	if err == nil {
		s.audioInit = true
	}
	return err
}

// playSweepTick clicks once per gated sweep
func (s *Sandbox) playSweepTick() {
	if !s.audioInit {
		return
	}

	sampleRate := beep.SampleRate(44100)
	sine, err := generators.SineTone(sampleRate, parameter.SandboxTickFrequency)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(parameter.SandboxTickDuration), sine))
}

// --- Systems ---

// contactSystem advances contacts by the frame's effective simulated time
type contactSystem struct {
	s *Sandbox
}

func (cs *contactSystem) Priority() int { return 1 }

func (cs *contactSystem) Update(tick engine.Tick) {
	cs.s.advanceContacts(tick.DeltaTime)
}

// sweepSystem is the gated cadence work: history dots, velocity leaders
// and the audible click run per sweep, not per frame
type sweepSystem struct {
	s *Sandbox
}

func (ss *sweepSystem) Priority() int { return 2 }

func (ss *sweepSystem) Update(tick engine.Tick) {
	if !tick.ShouldUpdate {
		return
	}
	ss.s.sweeps++
	ss.s.refreshLeaders()
	ss.s.playSweepTick()
}

func (s *Sandbox) advanceContacts(dt float64) {
	if dt == 0 {
		return
	}
	for _, c := range s.contacts {
		c.x += c.vx * dt
		c.y += c.vy * dt

		// Bounce off the scope edges
		if c.x < 1 || c.x > float64(s.width-2) {
			c.vx = -c.vx
			c.x = vmath.Clamp(1, c.x, float64(s.width-2))
		}
		if c.y < 1 || c.y > float64(s.height-5) {
			c.vy = -c.vy
			c.y = vmath.Clamp(1, c.y, float64(s.height-5))
		}
	}
}

// refreshLeaders pushes history dots and recomputes velocity leaders
func (s *Sandbox) refreshLeaders() {
	for _, c := range s.contacts {
		c.trail = append(c.trail, point{x: c.x, y: c.y})
		if len(c.trail) > parameter.SandboxTrailLength {
			c.trail = c.trail[1:]
		}
		c.leader = point{
			x: c.x + c.vx*parameter.SandboxLeaderSeconds,
			y: c.y + c.vy*parameter.SandboxLeaderSeconds,
		}
	}
}

// computeLookahead projects every contact along the forced probe delta.
// The session freezes normal bookkeeping, so the projection math consumes
// the probe without disturbing the clock.
func (s *Sandbox) computeLookahead() {
	err := s.keeper.RunFutureTrack(func() {
		step := s.keeper.DeltaTime() // probe scaled by warp, capped
		for _, c := range s.contacts {
			c.predicted = c.predicted[:0]
			for i := 1; i <= parameter.SandboxLookaheadSteps; i++ {
				t := step * float64(i)
				c.predicted = append(c.predicted, point{x: c.x + c.vx*t, y: c.y + c.vy*t})
			}
		}
	})
	if err != nil {
		s.logger.Warn("lookahead rejected", zap.Error(err))
	}
}

func (s *Sandbox) clearPredictions() {
	for _, c := range s.contacts {
		c.predicted = nil
	}
}

// --- Input ---

func (s *Sandbox) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			return s.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		s.handleResize()
	}
	return true
}

func (s *Sandbox) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case ' ':
		s.control(func() { s.keeper.TogglePause() })
	case '+', '=':
		s.control(func() { s.adjustWarp(parameter.SandboxWarpStep) })
	case '-', '_':
		s.control(func() { s.adjustWarp(-parameter.SandboxWarpStep) })
	case 'f':
		s.control(s.computeLookahead)
	case 'r':
		s.control(func() {
			s.keeper.Reset()
			s.sweeps = 0
			s.clearPredictions()
		})
	}
	return true
}

// control queues fn for the next frame; rejection only means one dropped
// keypress
func (s *Sandbox) control(fn func()) {
	if !s.loop.Control(fn) {
		s.logger.Warn("control queue full, input dropped")
	}
}

// adjustWarp nudges the timewarp within the sandbox control range
func (s *Sandbox) adjustWarp(delta float64) {
	next := vmath.Clamp(parameter.SandboxMinWarp, s.keeper.Timewarp()+delta, parameter.SandboxMaxWarp)
	if err := s.keeper.SetTimewarp(next); err != nil {
		s.logger.Warn("timewarp rejected",
			zap.Float64("requested", next),
			zap.Error(err))
	}
}

func (s *Sandbox) handleResize() {
	s.width, s.height = s.screen.Size()
	for _, c := range s.contacts {
		c.x = vmath.Clamp(1, c.x, float64(s.width-2))
		c.y = vmath.Clamp(1, c.y, float64(s.height-5))
	}
	s.screen.Sync()
}

// --- Rendering ---

// setCell paints inside the scope area, leaving the bottom bars alone
func (s *Sandbox) setCell(x, y int, r rune, style tcell.Style) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height-3 {
		return
	}
	s.screen.SetContent(x, y, r, nil, style)
}

func (s *Sandbox) drawText(x, y int, style tcell.Style, text string) {
	if y < 0 || y >= s.height {
		return
	}
	for i, r := range text {
		if x+i >= s.width {
			return
		}
		s.screen.SetContent(x+i, y, r, nil, style)
	}
}

// drawRings paints the range rings around the scope center
func (s *Sandbox) drawRings() {
	cx := float64(s.width) / 2
	cy := float64(s.height-3) / 2

	maxR := math.Min(cx-2, (cy-1)/0.5)
	if maxR < 2 {
		return
	}

	for _, r := range []float64{maxR / 2, maxR} {
		for deg := 0; deg < 360; deg += 3 {
			a := float64(deg) * math.Pi / 180
			x := int(math.Round(cx + r*math.Cos(a)))
			y := int(math.Round(cy + r*0.5*math.Sin(a)))
			s.setCell(x, y, '·', styleRing)
		}
	}
	s.setCell(int(cx), int(cy), '+', styleRing)
}

func (s *Sandbox) drawContact(c *Contact) {
	for _, p := range c.trail {
		s.setCell(int(math.Round(p.x)), int(math.Round(p.y)), '·', styleTrail)
	}

	// Leader line from the contact toward its projected position
	const leaderDots = 6
	for i := 1; i <= leaderDots; i++ {
		t := float64(i) / leaderDots
		x := vmath.Lerp(c.x, c.leader.x, t)
		y := vmath.Lerp(c.y, c.leader.y, t)
		s.setCell(int(math.Round(x)), int(math.Round(y)), '-', styleLeader)
	}

	for _, p := range c.predicted {
		s.setCell(int(math.Round(p.x)), int(math.Round(p.y)), '○', styleLookahead)
	}

	x, y := int(math.Round(c.x)), int(math.Round(c.y))
	s.setCell(x, y, '▲', styleContact)
	s.drawTextInScope(x+2, y, styleContact, c.callsign)
}

// drawTextInScope writes a label clipped to the scope area
func (s *Sandbox) drawTextInScope(x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.setCell(x+i, y, r, style)
	}
}

// drawStatus renders the clock snapshot, the metrics line and the help bar
func (s *Sandbox) drawStatus() {
	snap := s.keeper.Snapshot()

	state := "RUNNING"
	style := styleStatus
	if snap.Paused {
		state = "PAUSED"
		style = stylePaused
	}
	line := fmt.Sprintf(" %s  warp %.1f  step %d  frame %d  sweeps %d  sim %.1fs",
		state, snap.Timewarp, snap.FrameStep, snap.FrameCount, s.sweeps, snap.AccumulatedDeltaTime)
	s.drawText(0, s.height-3, style, line)

	s.drawText(0, s.height-2, styleMetrics, " "+s.metricsLine())
	s.drawText(0, s.height-1, styleHelp, " [space] pause  [+/-] warp  [f] lookahead  [r] reset  [q] quit")
}

// metricsLine flattens the registry into one line of key=value pairs
func (s *Sandbox) metricsLine() string {
	var b strings.Builder
	s.registry.Ints.Range(func(key string, ptr *atomic.Int64) {
		fmt.Fprintf(&b, "%s=%d ", key, ptr.Load())
	})
	s.registry.Floats.Range(func(key string, ptr *status.AtomicFloat) {
		fmt.Fprintf(&b, "%s=%.2f ", key, ptr.Get())
	})
	s.registry.Bools.Range(func(key string, ptr *atomic.Bool) {
		fmt.Fprintf(&b, "%s=%t ", key, ptr.Load())
	})
	return strings.TrimSpace(b.String())
}

func (s *Sandbox) draw() {
	s.screen.Clear()

	s.drawRings()
	for _, c := range s.contacts {
		s.drawContact(c)
	}
	s.drawStatus()

	s.screen.Show()
}

// --- Main Loop ---

func (s *Sandbox) run() {
	ticker := time.NewTicker(parameter.FrameUpdateInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !s.handleInput(ev) {
				return
			}
		case <-ticker.C:
			s.loop.Frame()
			s.draw()
		}
	}
}

func (s *Sandbox) cleanup() {
	if s.audioInit {
		speaker.Close()
	}
	s.screen.Fini()
}

// newLogger builds a file logger when requested; without one, logs are
// discarded rather than corrupting the TUI
func newLogger(path string) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	flag.Parse()

	logger := newLogger(*logFlag)
	defer func() { _ = logger.Sync() }()

	sandbox, err := newSandbox(logger, *contactsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	// Restore the terminal before reporting a crash
	defer func() {
		r := recover()
		sandbox.cleanup()
		if r != nil {
			fmt.Fprintf(os.Stderr, "\nSCOPE CRASHED: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	sandbox.run()
}
