// Package engine is the rendering facade: the model, lighting, quality,
// frame and pick operations the app drives, plus Viewer, the software
// implementation behind them.
//
// Init must run once per process before any Viewer is created.
package engine

import (
	"errors"
	"sync"

	"github.com/taigrr/glbview/pkg/anim"
	"github.com/taigrr/glbview/pkg/looper"
	"github.com/taigrr/glbview/pkg/math3d"
	"github.com/taigrr/glbview/pkg/render"
)

var (
	// ErrNotInitialized is returned by NewViewer before Init.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrNoModel is returned by operations that need a loaded model.
	ErrNoModel = errors.New("no model loaded")
)

var initOnce sync.Once

// Init performs the process-wide setup: the sRGB conversion tables the
// shading and presentation code read. It is safe to call more than once.
func Init() {
	initOnce.Do(render.InitColorTables)
}

// Entity identifies a renderable: one glTF node that draws a mesh. IDs
// grow across model loads and are never reused.
type Entity uint32

// NullEntity is the hit-test sentinel for "nothing hit".
const NullEntity Entity = 0

// HitTestResult is the outcome of a pick.
type HitTestResult struct {
	Renderable Entity
	Depth      float64     // NDC depth of the hit fragment
	FragCoords math3d.Vec3 // world position of the hit fragment
}

// Hit reports whether something was under the pick point.
func (r HitTestResult) Hit() bool {
	return r.Renderable != NullEntity
}

// QualityOptions selects the optional stages of the frame pipeline.
type QualityOptions struct {
	DynamicResolution     bool
	DynamicResolutionTier render.Tier
	MSAA                  bool
	FXAA                  bool
	AmbientOcclusion      bool
	Bloom                 bool
	HDRColorBuffer        render.Tier
}

// Stats describes the last rendered frame.
type Stats struct {
	Entities  int
	Triangles int
	Drawn     int // primitives that passed culling
	Culled    int
	Scale     float64 // dynamic-resolution scale
	Frames    uint64
}

// Facade is what the app layer needs from a rendering engine. Every method
// except Pick's worker must be called from the looper goroutine.
type Facade interface {
	LoadModel(data []byte) error
	ReleaseModel()
	SetIndirectLighting(skybox, ibl []byte) error
	SetIndirectIntensity(lux float64)
	ConfigureRenderQuality(opts QualityOptions)
	RenderFrame(frameTimeNanos int64)

	// Pick resolves the renderable under (x, y), bottom-left origin in
	// surface pixels, and delivers the result through h exactly once.
	Pick(x, y int, h looper.Handler, cb func(HitTestResult))

	HasEntity(e Entity) bool
	PrimitiveCount(e Entity) int
	PrimitiveTint(e Entity, slot int) ([4]float64, bool)
	SetPrimitiveTint(e Entity, slot int, rgba [4]float64)

	Animator() *anim.Animator
	TransformToUnitCube()
	ClearRootTransform()
	SetViewport(width, height int)
	Viewport() (width, height int)
	SetOrbit(yaw, pitch, distance float64)
	EntityName(e Entity) string
	Stats() Stats
}

// SurfaceCallbacks receives surface attach and detach notifications.
type SurfaceCallbacks interface {
	SurfaceCreated(s Surface)
	SurfaceDestroyed()
}

// Surface is where frames are presented.
type Surface interface {
	Present(fb *render.Framebuffer)
}
