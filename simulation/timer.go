package simulation

import (
	"sync"
	"time"
)

// Timer tracks elapsed simulation time across pauses. It starts paused.
type Timer struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	elapsed time.Duration
	paused  bool
}

// NewTimer creates a paused timer reading the given clock; nil means time.Now
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now, start: now(), paused: true}
}

// Start starts or resumes the timer
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		t.start = t.now().Add(-t.elapsed)
		t.paused = false
	}
}

// Pause stops the timer and keeps the elapsed time
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		t.elapsed = t.now().Sub(t.start)
		t.paused = true
	}
}

// Reset zeroes the timer and pauses it
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
	t.elapsed = 0
	t.paused = true
}

// Running reports whether the timer is running
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.paused
}

// Elapsed returns the accumulated running time
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return t.elapsed
	}
	return t.now().Sub(t.start)
}
