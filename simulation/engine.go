package simulation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reefcraft/logging"
)

// DefaultTickInterval paces the engine at 10 steps per second
const DefaultTickInterval = 100 * time.Millisecond

// Frame is the published state after a tick
type Frame struct {
	Tick    int
	Elapsed time.Duration
	Running bool
	Corals  []Snapshot
	Reports []StepReport
}

// Engine drives a reef from a ticker. Steps only run while the timer is
// running; pausing keeps the loop alive without touching the meshes.
// Readers get the latest frame through an atomic pointer and never block
// the simulation.
type Engine struct {
	reef     *Reef
	timer    *Timer
	interval time.Duration
	log      *slog.Logger

	ticks  atomic.Int64
	latest atomic.Pointer[Frame]

	// step serializes ticks, resets and every publish of a frame
	step sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(*Frame)
	nextID int
}

// NewEngine creates a paused engine. A non-positive interval uses
// DefaultTickInterval.
func NewEngine(reef *Reef, timer *Timer, interval time.Duration, log *slog.Logger) *Engine {
	if timer == nil {
		timer = NewTimer(nil)
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if log == nil {
		log = logging.Nop()
	}
	e := &Engine{
		reef:     reef,
		timer:    timer,
		interval: interval,
		log:      log,
		subs:     make(map[int]func(*Frame)),
	}
	e.publish(nil)
	return e
}

// Start resumes stepping
func (e *Engine) Start() {
	e.step.Lock()
	defer e.step.Unlock()

	e.timer.Start()
	e.log.Info("simulation running")
	e.publish(nil)
}

// Pause stops stepping at the next tick boundary
func (e *Engine) Pause() {
	e.step.Lock()
	defer e.step.Unlock()

	e.timer.Pause()
	e.log.Info("simulation paused", "elapsed", e.timer.Elapsed())
	e.publish(nil)
}

// Running reports whether ticks currently step the reef
func (e *Engine) Running() bool { return e.timer.Running() }

// Reset reseeds every coral and rewinds the timer, leaving the engine paused
func (e *Engine) Reset() error {
	e.step.Lock()
	defer e.step.Unlock()

	if err := e.reef.Reset(); err != nil {
		return err
	}
	e.timer.Reset()
	e.ticks.Store(0)
	e.log.Info("simulation reset")
	e.publish(nil)
	return nil
}

// Params returns the parameters of the named coral
func (e *Engine) Params(coral string) (Params, error) { return e.reef.Params(coral) }

// SetParams changes the parameters of the named coral from the next tick on
func (e *Engine) SetParams(coral string, p Params) error {
	if err := e.reef.SetParams(coral, p); err != nil {
		return err
	}
	e.log.Info("parameters changed",
		"coral", coral,
		"grow_threshold", p.GrowThreshold,
		"grow_amount", p.GrowAmount,
		"split_length", p.SplitLength)
	return nil
}

// Tick runs one step if the timer is running and returns the new frame.
// A paused engine returns the latest frame unchanged.
func (e *Engine) Tick() *Frame {
	e.step.Lock()
	defer e.step.Unlock()

	if !e.timer.Running() {
		return e.latest.Load()
	}

	start := time.Now()
	reports := e.reef.Step()
	tick := e.ticks.Add(1)
	e.log.Log(context.Background(), logging.LevelTrace, "tick",
		"tick", tick,
		"corals", len(reports),
		"took", time.Since(start))
	return e.publish(reports)
}

// Run ticks until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frameStart := time.Now()
			e.Tick()
			if took := time.Since(frameStart); took > e.interval {
				e.log.Warn("slow tick", "took", took, "interval", e.interval)
			}
		}
	}
}

// Latest returns the most recently published frame
func (e *Engine) Latest() *Frame { return e.latest.Load() }

// Subscribe registers fn to receive every published frame. fn runs on the
// publishing goroutine and must not block. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(*Frame)) func() {
	e.subMu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(reports []StepReport) *Frame {
	f := &Frame{
		Tick:    int(e.ticks.Load()),
		Elapsed: e.timer.Elapsed(),
		Running: e.timer.Running(),
		Corals:  e.reef.Snapshots(),
		Reports: reports,
	}
	e.latest.Store(f)

	e.subMu.Lock()
	subs := make([]func(*Frame), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(f)
	}
	return f
}
