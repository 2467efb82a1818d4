package app

import (
	"github.com/taigrr/glbview/pkg/choreo"
	"github.com/taigrr/glbview/pkg/engine"
)

// FrameLoop renders one frame per vsync while armed. Animation time is
// measured from the loop's creation on the frame source's clock.
type FrameLoop struct {
	source FrameSource
	facade engine.Facade
	start  int64

	armed   bool
	elapsed float64
	frames  uint64
	panics  uint64
}

var _ choreo.FrameCallback = (*FrameLoop)(nil)
var _ Driver = (*FrameLoop)(nil)

// NewFrameLoop creates an idle loop. The animation clock starts now.
func NewFrameLoop(source FrameSource, clock choreo.Clock, facade engine.Facade) *FrameLoop {
	return &FrameLoop{
		source: source,
		facade: facade,
		start:  clock.Nanos(),
	}
}

// Start arms the loop. Calling it while armed does nothing.
func (l *FrameLoop) Start() {
	if l.armed {
		return
	}
	l.armed = true
	l.source.PostFrameCallback(l)
	engine.Logger().Debug("frame loop started")
}

// Stop disarms the loop. Calling it while idle does nothing.
func (l *FrameLoop) Stop() {
	if !l.armed {
		return
	}
	l.armed = false
	l.source.RemoveFrameCallback(l)
	engine.Logger().Debug("frame loop stopped", "frames", l.frames)
}

// Armed reports whether the loop is waiting for a vsync.
func (l *FrameLoop) Armed() bool {
	return l.armed
}

// Frames returns how many vsyncs the loop handled.
func (l *FrameLoop) Frames() uint64 {
	return l.frames
}

// Panics returns how many frames were cut short by a panic.
func (l *FrameLoop) Panics() uint64 {
	return l.panics
}

// Elapsed returns the animation time of the last frame, in seconds.
func (l *FrameLoop) Elapsed() float64 {
	return l.elapsed
}

// DoFrame handles one vsync. It re-arms before doing any work, so a
// failing frame does not stop the loop.
func (l *FrameLoop) DoFrame(frameTimeNanos int64) {
	if !l.armed {
		return
	}
	l.source.PostFrameCallback(l)
	l.frames++

	// never runs backwards, even if ticks do
	l.elapsed = max(l.elapsed, float64(frameTimeNanos-l.start)/1e9)

	defer func() {
		if r := recover(); r != nil {
			l.panics++
			engine.Logger().Error("frame failed", "ts", frameTimeNanos, "panic", r)
		}
	}()
	if a := l.facade.Animator(); a != nil && a.AnimationCount() > 0 {
		a.ApplyAnimation(0, l.elapsed)
		a.UpdateBoneMatrices()
	}
	l.facade.RenderFrame(frameTimeNanos)
}
