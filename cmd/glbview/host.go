package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"

	"github.com/taigrr/glbview/pkg/app"
	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/looper"
	"github.com/taigrr/glbview/pkg/render"
)

const (
	mouseOn  = "\x1b[?1003h\x1b[?1006h" // any-event tracking, SGR coordinates
	mouseOff = "\x1b[?1003l\x1b[?1006l"
)

// termSurface presents frames on the terminal with the HUD on top.
type termSurface struct {
	term   *uv.Terminal
	hud    *HUD
	facade engine.Facade
	paused *bool

	cols, rows int
	last       *render.Framebuffer
}

var _ engine.Surface = (*termSurface)(nil)

func (s *termSurface) Present(fb *render.Framebuffer) {
	s.last = fb
	area := uv.Rect(0, 0, s.cols, s.rows)
	fb.Draw(s.term, area)
	s.hud.tick()
	s.hud.Draw(s.term, s.cols, s.rows, s.facade.Stats(), *s.paused)
	if err := s.term.Display(); err != nil {
		engine.Logger().Warn("display failed", "err", err)
	}
}

// screenshot writes the last presented frame next to the working
// directory and returns its path.
func (s *termSurface) screenshot() (string, error) {
	if s.last == nil {
		return "", fmt.Errorf("screenshot: nothing presented yet")
	}
	name := filepath.Join(".", "glbview-"+time.Now().Format("20060102-150405")+".png")
	if err := s.last.SavePNG(name, 4); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return name, nil
}

// sceneView steps the orbit before every frame it renders.
type sceneView struct {
	engine.Facade
	orbit *Orbit
}

func (v *sceneView) RenderFrame(ts int64) {
	v.orbit.Step()
	v.Facade.SetOrbit(v.orbit.View())
	v.Facade.RenderFrame(ts)
}

// host owns the terminal and turns its events into looper tasks.
type host struct {
	term    *uv.Terminal
	loop    *looper.Looper
	surface *termSurface
	binder  *app.Binder
	picker  *app.PickController
	orbit   *Orbit
	hud     *HUD
	quit    context.CancelFunc

	paused  bool
	buttons int // mouse buttons held
}

// resize applies a terminal size in cells. Pixels are one column wide and
// half a row tall.
func (h *host) resize(cols, rows int) {
	h.term.Erase()
	h.term.Resize(cols, rows)
	h.surface.cols, h.surface.rows = cols, rows
	h.binder.HandleSize(size.Event{WidthPx: cols, HeightPx: rows * 2, PixelsPerPt: 1})
}

func (h *host) togglePause() {
	if h.paused {
		h.binder.HandleLifecycle(lifecycle.Event{From: lifecycle.StageVisible, To: lifecycle.StageFocused})
		h.hud.Status("Resumed")
	} else {
		h.binder.HandleLifecycle(lifecycle.Event{From: lifecycle.StageFocused, To: lifecycle.StageVisible})
		h.hud.Status("Paused")
		// keep the HUD honest while no frames are drawn
		if h.surface.last != nil {
			h.surface.Present(h.surface.last)
		}
	}
	h.paused = !h.paused
}

func (h *host) exit() {
	from := lifecycle.StageFocused
	if h.paused {
		from = lifecycle.StageVisible
	}
	h.binder.HandleLifecycle(lifecycle.Event{From: from, To: lifecycle.StageDead})
	h.quit()
}

// handle runs on the looper.
func (h *host) handle(ev uv.Event) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		h.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c", "q"):
			h.exit()
		case ev.MatchString("p"):
			h.togglePause()
		case ev.MatchString("r"):
			h.orbit.Reset()
		case ev.MatchString("?", "shift+/"):
			h.hud.Toggle()
		case ev.MatchString("s"):
			if path, err := h.surface.screenshot(); err != nil {
				h.hud.Status(err.Error())
			} else {
				h.hud.Status("Saved " + path)
			}
		case ev.MatchString("left", "a"):
			h.orbit.Impulse(0.05, 0)
		case ev.MatchString("right", "d"):
			h.orbit.Impulse(-0.05, 0)
		case ev.MatchString("up", "w"):
			h.orbit.Impulse(0, 0.05)
		case ev.MatchString("down"):
			h.orbit.Impulse(0, -0.05)
		case ev.MatchString("+", "="):
			h.orbit.Zoom(-0.5)
		case ev.MatchString("-", "_"):
			h.orbit.Zoom(0.5)
		}

	case uv.MouseClickEvent:
		if ev.Button == uv.MouseLeft {
			h.buttons++
			h.picker.HandleTouch(touchAt(ev.X, ev.Y, touch.TypeBegin))
		}

	case uv.MouseMotionEvent:
		if h.buttons > 0 {
			h.picker.HandleTouch(touchAt(ev.X, ev.Y, touch.TypeMove))
		}

	case uv.MouseReleaseEvent:
		if h.buttons > 0 {
			h.buttons = 0
			h.picker.HandleTouch(touchAt(ev.X, ev.Y, touch.TypeEnd))
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			h.orbit.Zoom(-0.3)
		case uv.MouseWheelDown:
			h.orbit.Zoom(0.3)
		}
	}
}

// touchAt maps a cell to the upper of its two pixels.
func touchAt(col, row int, t touch.Type) touch.Event {
	return touch.Event{X: float32(col), Y: float32(row * 2), Type: t}
}

// pump forwards terminal events to the looper until ctx is done.
func (h *host) pump(ctx context.Context) error {
	events := h.term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			task := func() { h.handle(ev) }
			// motion may be dropped when the queue is full; drags
			// measure from the last delivered position
			if _, motion := ev.(uv.MouseMotionEvent); motion {
				if !h.loop.TryPost(task) {
					select {
					case <-h.loop.Done():
						return nil
					default:
					}
				}
				continue
			}
			if !h.loop.Post(task) {
				return nil
			}
		}
	}
}

// emergencyReset restores a usable terminal after a crash.
func emergencyReset() {
	fmt.Fprint(os.Stdout, mouseOff+"\x1b[?25h\x1b[?1049l\x1b[0m")
	os.Stdout.Sync()
}

// guard wraps a host goroutine so a panic leaves the terminal usable
// before the process exits.
func guard(fn func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				emergencyReset()
				fmt.Fprintf(os.Stderr, "\r\nglbview crashed: %v\r\n%s\r\n", r, debug.Stack())
				os.Exit(1)
			}
		}()
		return fn()
	}
}
