package choreo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taigrr/glbview/pkg/looper"
)

type recorder struct {
	frames []int64
	repost *Choreographer
}

func (r *recorder) DoFrame(ns int64) {
	r.frames = append(r.frames, ns)
	if r.repost != nil {
		r.repost.PostFrameCallback(r)
	}
}

func TestOneShotDelivery(t *testing.T) {
	l := looper.New(8)
	clock := NewManualClock(100)
	c := New(l, clock, 60)

	r := &recorder{}
	c.PostFrameCallback(r)
	c.Tick()
	l.Drain()
	c.Tick()
	l.Drain()

	if len(r.frames) != 1 || r.frames[0] != 100 {
		t.Errorf("frames = %v, want [100]", r.frames)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestRepostRunsNextTick(t *testing.T) {
	l := looper.New(8)
	clock := NewManualClock(0)
	c := New(l, clock, 60)

	r := &recorder{repost: c}
	c.PostFrameCallback(r)
	for range 3 {
		clock.Advance(16 * time.Millisecond)
		c.Tick()
		l.Drain()
	}

	want := []int64{16e6, 32e6, 48e6}
	if len(r.frames) != len(want) {
		t.Fatalf("frames = %v, want %v", r.frames, want)
	}
	for i := range want {
		if r.frames[i] != want[i] {
			t.Errorf("frame %d = %d, want %d", i, r.frames[i], want[i])
		}
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want the reposted callback", c.Pending())
	}
}

func TestRemoveFrameCallback(t *testing.T) {
	l := looper.New(8)
	c := New(l, NewManualClock(0), 60)

	a, b := &recorder{}, &recorder{}
	c.PostFrameCallback(a)
	c.PostFrameCallback(b)
	c.PostFrameCallback(a)
	c.RemoveFrameCallback(a)
	c.Tick()
	l.Drain()

	if len(a.frames) != 0 {
		t.Errorf("removed callback ran %d times", len(a.frames))
	}
	if len(b.frames) != 1 {
		t.Errorf("kept callback ran %d times, want 1", len(b.frames))
	}
}

func TestTicksNonDecreasing(t *testing.T) {
	l := looper.New(8)
	clock := NewManualClock(500)
	c := New(l, clock, 60)

	r := &recorder{repost: c}
	c.PostFrameCallback(r)
	c.Tick()
	l.Drain()
	clock.Set(200) // a clock that steps backwards
	c.Tick()
	l.Drain()

	if r.frames[1] < r.frames[0] {
		t.Errorf("frames = %v, want non-decreasing", r.frames)
	}
}

func TestTickSkipsWhileInFlight(t *testing.T) {
	l := looper.New(8)
	c := New(l, NewManualClock(0), 60)

	if !c.Tick() {
		t.Fatal("first Tick not queued")
	}
	if c.Tick() {
		t.Error("second Tick queued while the first is undelivered")
	}
	l.Drain()
	if !c.Tick() {
		t.Error("Tick after delivery not queued")
	}
	if delivered, skipped := c.Ticks(); delivered != 2 || skipped != 1 {
		t.Errorf("Ticks() = %d, %d, want 2, 1", delivered, skipped)
	}
}

func TestTickAfterQuit(t *testing.T) {
	l := looper.New(8)
	c := New(l, NewManualClock(0), 60)
	l.Quit()
	if c.Tick() {
		t.Error("Tick queued on a quit looper")
	}
	// the in-flight flag was released
	if c.Tick() {
		t.Error("Tick queued on a quit looper")
	}
	if _, skipped := c.Ticks(); skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := looper.New(8)
	c := New(l, nil, 240)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
	if delivered, _ := c.Ticks(); delivered == 0 {
		t.Error("no ticks in 50ms at 240fps")
	}
}
