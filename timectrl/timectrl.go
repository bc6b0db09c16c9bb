package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time. Components that
// care about "now" (the position track, the status line) depend on this
// abstraction rather than the wall clock, enabling testability and time
// acceleration.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// SystemClock is a SimClock backed by the wall clock.
type SystemClock struct{}

// Now implements SimClock.
func (SystemClock) Now() time.Time { return time.Now() }

// ScaledClock advances simulation time at a fixed multiple of wall speed
// from an anchor instant. Rate 1 tracks the wall clock; rate 60 runs a
// minute of simulation per wall second.
type ScaledClock struct {
	anchorWall time.Time
	anchorSim  time.Time
	rate       float64
}

// NewScaledClock anchors simulation time start to the current wall instant.
// Non-positive rates are coerced to 1.
func NewScaledClock(start time.Time, rate float64) *ScaledClock {
	if rate <= 0 {
		rate = 1
	}
	return &ScaledClock{
		anchorWall: time.Now(),
		anchorSim:  start,
		rate:       rate,
	}
}

// Now implements SimClock.
func (c *ScaledClock) Now() time.Time {
	elapsed := time.Since(c.anchorWall)
	return c.anchorSim.Add(time.Duration(float64(elapsed) * c.rate))
}

// Rate returns the acceleration factor.
func (c *ScaledClock) Rate() float64 { return c.rate }

// ManualClock is a SimClock that only moves when told to. It exists for
// tests that need deterministic time offsets.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock constructs a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements SimClock.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetTime pins the clock to an absolute instant.
func (c *ManualClock) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
