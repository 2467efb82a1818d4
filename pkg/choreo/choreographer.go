// Package choreo is the display refresh source. It turns a fixed-rate
// ticker into one-shot frame callbacks delivered on a looper, the way a
// platform vsync choreographer does.
package choreo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taigrr/glbview/pkg/looper"
)

// FrameCallback receives a vsync timestamp in clock nanoseconds.
type FrameCallback interface {
	DoFrame(frameTimeNanos int64)
}

// DefaultFPS is the refresh rate when none is configured.
const DefaultFPS = 30

// Choreographer delivers posted callbacks once per tick.
type Choreographer struct {
	handler  looper.Handler
	clock    Clock
	interval time.Duration

	mu        sync.Mutex
	callbacks []FrameCallback
	lastTick  int64

	// a delivery is queued on the handler and has not run yet
	inFlight atomic.Bool
	ticks    atomic.Uint64
	skipped  atomic.Uint64
	running  atomic.Bool
}

// New creates a choreographer ticking at fps and delivering through h.
func New(h looper.Handler, clock Clock, fps int) *Choreographer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &Choreographer{
		handler:  h,
		clock:    clock,
		interval: time.Second / time.Duration(fps),
	}
}

// Clock returns the time source ticks are stamped with.
func (c *Choreographer) Clock() Clock {
	return c.clock
}

// Interval returns the tick period.
func (c *Choreographer) Interval() time.Duration {
	return c.interval
}

// PostFrameCallback registers cb for the next tick only.
func (c *Choreographer) PostFrameCallback(cb FrameCallback) {
	c.mu.Lock()
	c.callbacks = append(c.callbacks, cb)
	c.mu.Unlock()
}

// RemoveFrameCallback drops every pending registration of cb.
func (c *Choreographer) RemoveFrameCallback(cb FrameCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.callbacks[:0]
	for _, p := range c.callbacks {
		if p != cb {
			kept = append(kept, p)
		}
	}
	clear(c.callbacks[len(kept):])
	c.callbacks = kept
}

// Pending returns the number of registered callbacks.
func (c *Choreographer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.callbacks)
}

// Run ticks until ctx is done.
func (c *Choreographer) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	defer c.running.Store(false)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick stamps a vsync and queues its delivery. While an earlier delivery
// is still queued the tick is skipped, so a slow frame drops vsyncs
// instead of piling them up. It reports whether a delivery was queued.
func (c *Choreographer) Tick() bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.skipped.Add(1)
		return false
	}
	ts := c.stamp()
	if !c.handler.Post(func() { c.deliver(ts) }) {
		c.inFlight.Store(false)
		return false
	}
	c.ticks.Add(1)
	return true
}

// Ticks returns the number of deliveries queued and the number of vsyncs
// skipped.
func (c *Choreographer) Ticks() (delivered, skipped uint64) {
	return c.ticks.Load(), c.skipped.Load()
}

func (c *Choreographer) stamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := max(c.clock.Nanos(), c.lastTick)
	c.lastTick = ts
	return ts
}

// deliver runs on the handler. Callbacks posted while it runs wait for the
// next tick.
func (c *Choreographer) deliver(ts int64) {
	c.mu.Lock()
	batch := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()
	c.inFlight.Store(false)

	for _, cb := range batch {
		cb.DoFrame(ts)
	}
}
