package engine

import (
	"github.com/taigrr/glbview/pkg/looper"
)

// Pick resolves the renderable under (x, y) asynchronously. Coordinates
// are surface pixels with a bottom-left origin. The worker reads the last
// presented frame, so a pick before the first frame reports nothing hit.
// cb runs exactly once, through h; if h refuses the post the result is
// dropped.
func (v *Viewer) Pick(x, y int, h looper.Handler, cb func(HitTestResult)) {
	frame := v.frame.Load()
	go func() {
		var res HitTestResult
		if frame != nil {
			id, depth, world := frame.At(x, frame.ViewHeight-y)
			res = HitTestResult{Renderable: Entity(id), Depth: depth, FragCoords: world}
		}
		if !h.Post(func() { cb(res) }) {
			Logger().Warn("pick result dropped", "x", x, "y", y, "entity", uint32(res.Renderable))
		}
	}()
}
