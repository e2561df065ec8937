package simulation

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	timer := NewTimer(clock.now)

	if timer.Running() {
		t.Fatal("timer should start paused")
	}
	clock.advance(time.Second)
	if got := timer.Elapsed(); got != 0 {
		t.Errorf("paused elapsed = %v, want 0", got)
	}

	timer.Start()
	clock.advance(2 * time.Second)
	if got := timer.Elapsed(); got != 2*time.Second {
		t.Errorf("elapsed = %v, want 2s", got)
	}

	timer.Pause()
	clock.advance(5 * time.Second)
	if got := timer.Elapsed(); got != 2*time.Second {
		t.Errorf("elapsed across pause = %v, want 2s", got)
	}

	timer.Start()
	timer.Start()
	clock.advance(time.Second)
	if got := timer.Elapsed(); got != 3*time.Second {
		t.Errorf("elapsed after resume = %v, want 3s", got)
	}

	timer.Reset()
	if timer.Running() || timer.Elapsed() != 0 {
		t.Errorf("reset left running=%v elapsed=%v", timer.Running(), timer.Elapsed())
	}
}
