package app

import (
	"errors"
	"fmt"

	"github.com/taigrr/glbview/pkg/anim"
	"github.com/taigrr/glbview/pkg/choreo"
	"github.com/taigrr/glbview/pkg/engine"
	"github.com/taigrr/glbview/pkg/looper"
	"github.com/taigrr/glbview/pkg/math3d"
	"github.com/taigrr/glbview/pkg/models"
)

// fakeFacade records every call the app layer makes.
type fakeFacade struct {
	width, height int

	prims map[engine.Entity]int
	names map[engine.Entity]string
	tints map[engine.Entity][][4]float64

	animator *anim.Animator
	renders  []int64
	panicOn  int // render call that panics, 1-based; 0 never

	hitAt     func(x, y int) engine.HitTestResult
	picks     [][2]int
	loadErr   error
	lightErr  error
	loads     int
	releases  int
	unitCube  int
	cleared   int
	intensity float64
	quality   *engine.QualityOptions
	viewports [][2]int
}

var _ engine.Facade = (*fakeFacade)(nil)

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		width:  100,
		height: 50,
		prims:  map[engine.Entity]int{},
		names:  map[engine.Entity]string{},
		tints:  map[engine.Entity][][4]float64{},
	}
}

// addEntity registers e with n primitive slots at the default tint.
func (f *fakeFacade) addEntity(e engine.Entity, n int, name string) {
	f.prims[e] = n
	f.names[e] = name
	f.tints[e] = make([][4]float64, n)
	for i := range f.tints[e] {
		f.tints[e][i] = engine.DefaultTint
	}
}

func (f *fakeFacade) LoadModel(data []byte) error {
	f.loads++
	return f.loadErr
}

func (f *fakeFacade) ReleaseModel() {
	f.releases++
	f.prims = map[engine.Entity]int{}
	f.tints = map[engine.Entity][][4]float64{}
}

func (f *fakeFacade) SetIndirectLighting(skybox, ibl []byte) error { return f.lightErr }
func (f *fakeFacade) SetIndirectIntensity(lux float64)             { f.intensity = lux }

func (f *fakeFacade) ConfigureRenderQuality(opts engine.QualityOptions) {
	f.quality = &opts
}

func (f *fakeFacade) RenderFrame(ts int64) {
	f.renders = append(f.renders, ts)
	if f.panicOn == len(f.renders) {
		panic("render failed")
	}
}

func (f *fakeFacade) Pick(x, y int, h looper.Handler, cb func(engine.HitTestResult)) {
	f.picks = append(f.picks, [2]int{x, y})
	var res engine.HitTestResult
	if f.hitAt != nil {
		res = f.hitAt(x, y)
	}
	h.Post(func() { cb(res) })
}

func (f *fakeFacade) HasEntity(e engine.Entity) bool {
	_, ok := f.prims[e]
	return ok
}

func (f *fakeFacade) PrimitiveCount(e engine.Entity) int { return f.prims[e] }

func (f *fakeFacade) PrimitiveTint(e engine.Entity, slot int) ([4]float64, bool) {
	ts, ok := f.tints[e]
	if !ok || slot < 0 || slot >= len(ts) {
		return [4]float64{}, false
	}
	return ts[slot], true
}

func (f *fakeFacade) SetPrimitiveTint(e engine.Entity, slot int, rgba [4]float64) {
	if ts, ok := f.tints[e]; ok && slot >= 0 && slot < len(ts) {
		ts[slot] = rgba
	}
}

func (f *fakeFacade) Animator() *anim.Animator { return f.animator }
func (f *fakeFacade) TransformToUnitCube()     { f.unitCube++ }
func (f *fakeFacade) ClearRootTransform()      { f.cleared++ }

func (f *fakeFacade) SetViewport(w, h int) {
	f.width, f.height = w, h
	f.viewports = append(f.viewports, [2]int{w, h})
}

func (f *fakeFacade) Viewport() (int, int)                  { return f.width, f.height }
func (f *fakeFacade) SetOrbit(yaw, pitch, distance float64) {}
func (f *fakeFacade) EntityName(e engine.Entity) string     { return f.names[e] }
func (f *fakeFacade) Stats() engine.Stats                   { return engine.Stats{Frames: uint64(len(f.renders))} }

// tintsOf returns every slot tint of e.
func (f *fakeFacade) tintsOf(e engine.Entity) [][4]float64 {
	return f.tints[e]
}

// fakeNotifier records feedback in order.
type fakeNotifier struct {
	statuses []string
	popups   []string
	dismiss  int
}

func (n *fakeNotifier) Status(msg string)            { n.statuses = append(n.statuses, msg) }
func (n *fakeNotifier) ShowPopup(title, body string) { n.popups = append(n.popups, body) }
func (n *fakeNotifier) DismissPopup()                { n.dismiss++ }

// inlineHandler runs posts on the caller.
type inlineHandler struct{}

func (inlineHandler) Post(fn func()) bool {
	fn()
	return true
}

// fakeSource records frame callback registrations.
type fakeSource struct {
	posted  []choreo.FrameCallback
	removed int
}

func (s *fakeSource) PostFrameCallback(cb choreo.FrameCallback) {
	s.posted = append(s.posted, cb)
}

func (s *fakeSource) RemoveFrameCallback(cb choreo.FrameCallback) {
	s.removed++
	kept := s.posted[:0]
	for _, p := range s.posted {
		if p != cb {
			kept = append(kept, p)
		}
	}
	s.posted = kept
}

// vsync delivers one frame the way the choreographer does: snapshot,
// clear, invoke.
func (s *fakeSource) vsync(ts int64) {
	cbs := s.posted
	s.posted = nil
	for _, cb := range cbs {
		cb.DoFrame(ts)
	}
}

// fakeDriver counts Start and Stop.
type fakeDriver struct {
	starts, stops int
}

func (d *fakeDriver) Start() { d.starts++ }
func (d *fakeDriver) Stop()  { d.stops++ }

// slideAnimator moves node 0 from x=0 to x=4 over two seconds.
func slideAnimator() *anim.Animator {
	return anim.New(&models.Scene{
		Nodes: []models.Node{{
			Parent:   -1,
			Rotation: math3d.QuatIdentity(),
			Scale:    math3d.One3(),
			Mesh:     -1,
			Skin:     -1,
		}},
		Roots: []int{0},
		Animations: []models.Animation{{
			Duration: 2,
			Channels: []models.Channel{{
				Node:   0,
				Path:   models.PathTranslation,
				Interp: models.InterpLinear,
				Times:  []float64{0, 2},
				Values: [][4]float64{{0, 0, 0}, {4, 0, 0}},
			}},
		}},
	})
}

// memStore is an AssetReader over a map.
type memStore map[string][]byte

var errMissing = errors.New("missing")

func (m memStore) ReadAsset(path string) ([]byte, error) {
	if d, ok := m[path]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("asset %q: %w", path, errMissing)
}
