package app

import (
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"

	"github.com/taigrr/glbview/pkg/engine"
)

// Binder maps host surface and lifecycle transitions onto the frame loop
// and the facade.
type Binder struct {
	driver    Driver
	facade    engine.Facade
	destroyed bool
}

// NewBinder returns a binder for driver and facade.
func NewBinder(driver Driver, facade engine.Facade) *Binder {
	return &Binder{driver: driver, facade: facade}
}

// SurfaceCreated notes a new surface. The facade binds it itself.
func (b *Binder) SurfaceCreated(s engine.Surface) {
	engine.Logger().Info("surface created")
}

// SurfaceChanged forwards a new surface size to the viewport.
func (b *Binder) SurfaceChanged(width, height int) {
	engine.Logger().Info("surface changed", "width", width, "height", height)
	b.facade.SetViewport(width, height)
}

// SurfaceDestroyed notes the surface is gone.
func (b *Binder) SurfaceDestroyed() {
	engine.Logger().Info("surface destroyed")
}

// Resumed starts rendering. It does nothing once Destroyed ran.
func (b *Binder) Resumed() {
	if b.destroyed {
		engine.Logger().Warn("resume after destroy ignored")
		return
	}
	engine.Logger().Info("lifecycle", "state", "resumed")
	b.driver.Start()
}

// Paused stops rendering.
func (b *Binder) Paused() {
	engine.Logger().Info("lifecycle", "state", "paused")
	b.driver.Stop()
}

// Stopped is informational.
func (b *Binder) Stopped() {
	engine.Logger().Info("lifecycle", "state", "stopped")
}

// Destroyed stops rendering and releases the model. Only the first call
// has an effect.
func (b *Binder) Destroyed() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	engine.Logger().Info("lifecycle", "state", "destroyed")
	b.driver.Stop()
	b.facade.ReleaseModel()
}

// IsDestroyed reports whether Destroyed ran.
func (b *Binder) IsDestroyed() bool {
	return b.destroyed
}

// HandleLifecycle translates a stage change into transitions, in the
// order a host would report them: focus, then visibility, then death.
func (b *Binder) HandleLifecycle(e lifecycle.Event) {
	switch e.Crosses(lifecycle.StageFocused) {
	case lifecycle.CrossOn:
		b.Resumed()
	case lifecycle.CrossOff:
		b.Paused()
	}
	if e.Crosses(lifecycle.StageVisible) == lifecycle.CrossOff {
		b.Stopped()
	}
	if e.To == lifecycle.StageDead {
		b.Destroyed()
	}
}

// HandleSize forwards a size event as a surface change.
func (b *Binder) HandleSize(e size.Event) {
	b.SurfaceChanged(e.WidthPx, e.HeightPx)
}
