package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first reading of a StepClock built with a zero start.
var DefaultEpoch = time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

// StepClock is a deterministic parse.Clock for tests. Every call to Now
// advances it by a fixed step, so elapsed times are exact multiples of the
// step.
//
// Unlike the system clock, StepClock can be reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock whose first reading is start (DefaultEpoch
// when zero) and which advances by step per reading.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	return &StepClock{start: start, step: step}
}

// Now returns the next reading.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many readings have been taken.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its first reading.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

// ZeroClock always reads the zero time, which parse.SafeNow treats as a
// broken clock.
type ZeroClock struct{}

func (ZeroClock) Now() time.Time { return time.Time{} }

// PanicClock panics on every reading.
type PanicClock struct{}

func (PanicClock) Now() time.Time { panic("clock unavailable") }
