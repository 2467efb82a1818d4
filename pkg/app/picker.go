package app

import (
	"fmt"
	"math"

	"golang.org/x/mobile/event/touch"

	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/looper"
)

var (
	// SelectedTint marks the selected entity.
	SelectedTint = [4]float64{1, 0, 0, 1}
	// UnselectedTint is restored on deselection.
	UnselectedTint = [4]float64{1, 1, 1, 1}
)

// DefaultTapSlop is how far, in pixels, a touch may travel and still count
// as a tap.
const DefaultTapSlop = 2.0

// DragHandler receives pointer movement of touches that are not taps.
type DragHandler interface {
	Drag(dx, dy float64)
}

// PickController turns taps into pick requests and toggles the selection
// from the results. At most one entity carries SelectedTint.
type PickController struct {
	facade  engine.Facade
	handler looper.Handler
	notify  Notifier
	drag    DragHandler

	// TapSlop overrides DefaultTapSlop when positive.
	TapSlop float64

	selection Selection

	touching bool
	dragging bool
	seq      touch.Sequence
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
}

// NewPickController returns a controller that picks through facade and
// receives results on h.
func NewPickController(facade engine.Facade, h looper.Handler, n Notifier) *PickController {
	return &PickController{
		facade:    facade,
		handler:   h,
		notify:    n,
		selection: NoSelection{},
	}
}

// SetDragHandler installs d to receive non-tap touch movement.
func (c *PickController) SetDragHandler(d DragHandler) {
	c.drag = d
}

// Selection returns the current selection.
func (c *PickController) Selection() Selection {
	return c.selection
}

// OnTap picks at (x, y) in surface pixels with a top-left origin.
func (c *PickController) OnTap(x, y int) {
	_, h := c.facade.Viewport()
	c.facade.Pick(x, h-y, c.handler, c.onPick)
}

func (c *PickController) onPick(res engine.HitTestResult) {
	if !res.Hit() {
		engine.Logger().Debug("pick: nothing hit")
		return
	}
	hit := res.Renderable
	engine.Logger().Info("picked", "entity", uint32(hit), "depth", res.Depth)

	if sel, ok := c.selection.(Selected); ok && sel.Entity == hit {
		c.tint(hit, UnselectedTint)
		c.selection = NoSelection{}
		c.notify.Status(fmt.Sprintf("Deselected entity ID: %d", hit))
		c.notify.DismissPopup()
		return
	}

	if sel, ok := c.selection.(Selected); ok && c.facade.HasEntity(sel.Entity) {
		c.tint(sel.Entity, UnselectedTint)
	}
	c.tint(hit, SelectedTint)
	c.selection = Selected{Entity: hit}
	c.notify.Status(fmt.Sprintf("Selected entity ID: %d", hit))
	c.notify.ShowPopup("Entity Info", c.describe(res))
}

func (c *PickController) tint(e engine.Entity, rgba [4]float64) {
	for slot := range c.facade.PrimitiveCount(e) {
		c.facade.SetPrimitiveTint(e, slot, rgba)
	}
}

func (c *PickController) describe(res engine.HitTestResult) string {
	s := fmt.Sprintf("You clicked on entity ID: %d", res.Renderable)
	if name := c.facade.EntityName(res.Renderable); name != "" {
		s += "\nNode: " + name
	}
	p := res.FragCoords
	s += fmt.Sprintf("\nAt: (%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
	return s
}

func (c *PickController) slop() float64 {
	if c.TapSlop > 0 {
		return c.TapSlop
	}
	return DefaultTapSlop
}

// HandleTouch tracks one touch sequence at a time. A sequence that ends
// within the tap slop of where it began is a tap; one that leaves it
// becomes a drag.
func (c *PickController) HandleTouch(e touch.Event) {
	x, y := float64(e.X), float64(e.Y)
	switch e.Type {
	case touch.TypeBegin:
		if c.touching {
			return
		}
		c.touching, c.dragging = true, false
		c.seq = e.Sequence
		c.startX, c.startY = x, y
		c.lastX, c.lastY = x, y

	case touch.TypeMove:
		if !c.touching || e.Sequence != c.seq {
			return
		}
		if !c.dragging && math.Hypot(x-c.startX, y-c.startY) > c.slop() {
			c.dragging = true
		}
		if c.dragging && c.drag != nil {
			c.drag.Drag(x-c.lastX, y-c.lastY)
		}
		c.lastX, c.lastY = x, y

	case touch.TypeEnd:
		if !c.touching || e.Sequence != c.seq {
			return
		}
		c.touching = false
		if c.dragging || math.Hypot(x-c.startX, y-c.startY) > c.slop() {
			return
		}
		c.OnTap(int(c.startX), int(c.startY))
	}
}
