package choreo

import (
	"sync"
	"time"
)

// Clock is a monotonic nanosecond time source.
type Clock interface {
	Nanos() int64
}

// SystemClock reads the process monotonic clock, counted from its
// creation.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock that starts at zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Nanos returns the nanoseconds since the clock was created.
func (c *SystemClock) Nanos() int64 {
	return int64(time.Since(c.start))
}

// ManualClock is a controllable clock for tests.
type ManualClock struct {
	mu  sync.RWMutex
	now int64
}

// NewManualClock creates a manual clock reading start.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Nanos returns the current mocked time.
func (m *ManualClock) Nanos() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set sets the current time.
func (m *ManualClock) Set(ns int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = ns
}

// Advance moves the clock forward by d.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += int64(d)
}
