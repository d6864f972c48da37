package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests that record runs.
//
// Each call to Now returns the base time advanced by one more step, so runs
// recorded in sequence get distinct, ordered start times. Safe for
// concurrent use.
type StepClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// NewStepClock creates a clock whose first Now returns base.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	return &StepClock{base: base, step: step}
}

// Now returns the next time point.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock so the next Now returns base again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
