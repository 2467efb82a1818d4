package engine

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/taigrr/glbview/pkg/anim"
	"github.com/taigrr/glbview/pkg/ibl"
	"github.com/taigrr/glbview/pkg/math3d"
	"github.com/taigrr/glbview/pkg/models"
	"github.com/taigrr/glbview/pkg/render"
)

// ReferenceIntensity is the indirect light intensity, in lux, that maps
// to an environment scale of 1.
const ReferenceIntensity = 30000.0

// DefaultTint is the neutral base color factor.
var DefaultTint = [4]float64{1, 1, 1, 1}

type primitive struct {
	mesh    *models.Mesh
	skinned *skinnedMesh
	surf    render.Surface
}

type entity struct {
	id    Entity
	node  int
	name  string
	prims []primitive
}

type model struct {
	scene    *models.Scene
	animator *anim.Animator
	entities []*entity
	byID     map[Entity]*entity
	tris     int
}

// Viewer is the software rendering engine behind Facade. Apart from Pick,
// which only reads an immutable frame snapshot, it must be driven from a
// single goroutine.
type Viewer struct {
	renderer *render.Renderer
	surface  Surface
	model    *model
	env      *ibl.Environment

	intensity float64
	nextID    Entity
	frames    uint64
	stats     Stats

	// last presented frame, read by pick workers
	frame atomic.Pointer[render.Frame]
}

var _ Facade = (*Viewer)(nil)
var _ SurfaceCallbacks = (*Viewer)(nil)

// NewViewer creates a detached viewer presenting width x height pixels.
func NewViewer(width, height int) (*Viewer, error) {
	if !render.ColorTablesReady() {
		return nil, ErrNotInitialized
	}
	v := &Viewer{
		renderer:  render.NewRenderer(max(0, width), max(0, height)),
		intensity: ReferenceIntensity,
		nextID:    1,
	}
	return v, nil
}

// Renderer exposes the frame pipeline for presentation and camera control.
func (v *Viewer) Renderer() *render.Renderer {
	return v.renderer
}

// SurfaceCreated attaches the viewer to a presentation surface.
func (v *Viewer) SurfaceCreated(s Surface) {
	v.surface = s
	Logger().Info("surface attached")
}

// SurfaceDestroyed detaches the viewer. Frames render as no-ops until the
// next SurfaceCreated.
func (v *Viewer) SurfaceDestroyed() {
	v.surface = nil
	Logger().Info("surface detached")
}

// LoadModel replaces the current model with a GLB blob.
func (v *Viewer) LoadModel(data []byte) error {
	scene, err := models.DecodeGLB(data)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	v.ReleaseModel()

	textures := make([]*render.Texture, len(scene.Textures))
	for i, img := range scene.Textures {
		textures[i] = render.TextureFromImage(img)
	}

	m := &model{
		scene:    scene,
		animator: anim.New(scene),
		byID:     make(map[Entity]*entity),
		tris:     scene.TriangleCount(),
	}
	for ni, n := range scene.Nodes {
		if n.Mesh < 0 {
			continue
		}
		e := &entity{id: v.nextID, node: ni, name: n.Name}
		v.nextID++
		for _, p := range scene.Meshes[n.Mesh].Primitives {
			mat := scene.MaterialAt(p.Material)
			prim := primitive{mesh: p.Mesh, surf: surfaceFor(mat, textures)}
			if n.Skin >= 0 && p.Mesh.Skinned {
				prim.skinned = newSkinnedMesh(p.Mesh)
			}
			e.prims = append(e.prims, prim)
		}
		m.entities = append(m.entities, e)
		m.byID[e.id] = e
	}
	v.model = m

	Logger().Info("model loaded",
		"entities", len(m.entities),
		"triangles", m.tris,
		"animations", len(scene.Animations))
	return nil
}

func surfaceFor(mat models.Material, textures []*render.Texture) render.Surface {
	s := render.Surface{
		BaseColor:   mat.BaseColor,
		Metallic:    mat.Metallic,
		Roughness:   mat.Roughness,
		Emissive:    math3d.V3FromArray(mat.Emissive),
		DoubleSided: mat.DoubleSided,
	}
	if mat.BaseTexture >= 0 && mat.BaseTexture < len(textures) {
		s.Texture = textures[mat.BaseTexture]
	}
	return s
}

// ReleaseModel drops the model and its entities. Safe to call without a
// model.
func (v *Viewer) ReleaseModel() {
	if v.model == nil {
		return
	}
	Logger().Info("model released", "entities", len(v.model.entities))
	v.model = nil
	v.frame.Store(nil)
}

// HasModel reports whether a model is loaded.
func (v *Viewer) HasModel() bool {
	return v.model != nil
}

// Entities lists the renderables of the current model in node order.
func (v *Viewer) Entities() []Entity {
	if v.model == nil {
		return nil
	}
	out := make([]Entity, len(v.model.entities))
	for i, e := range v.model.entities {
		out[i] = e.id
	}
	return out
}

// SetIndirectLighting binds the skybox and IBL KTX blobs.
func (v *Viewer) SetIndirectLighting(skybox, iblData []byte) error {
	env, err := ibl.NewEnvironment(skybox, iblData)
	if err != nil {
		return fmt.Errorf("indirect light: %w", err)
	}
	v.env = env
	v.renderer.Raster.Lighting.Env = env
	v.renderer.Raster.Lighting.Intensity = v.intensity / ReferenceIntensity
	return nil
}

// SetIndirectIntensity sets the environment intensity in lux.
func (v *Viewer) SetIndirectIntensity(lux float64) {
	if lux < 0 || math.IsNaN(lux) {
		lux = 0
	}
	v.intensity = lux
	v.renderer.Raster.Lighting.Intensity = lux / ReferenceIntensity
}

// ConfigureRenderQuality applies the options from the next frame on.
func (v *Viewer) ConfigureRenderQuality(opts QualityOptions) {
	v.renderer.Configure(render.Options{
		DynamicResolution: opts.DynamicResolution,
		DynamicTier:       opts.DynamicResolutionTier,
		MSAA:              opts.MSAA,
		FXAA:              opts.FXAA,
		AmbientOcclusion:  opts.AmbientOcclusion,
		Bloom:             opts.Bloom,
		HDR:               opts.HDRColorBuffer,
	})
}

// SetFrameBudget sets the frame time dynamic resolution aims for.
func (v *Viewer) SetFrameBudget(d time.Duration) {
	v.renderer.SetFrameBudget(d)
}

// SetViewport resizes the presented image. Negative sizes count as zero.
func (v *Viewer) SetViewport(width, height int) {
	v.renderer.SetViewport(max(0, width), max(0, height))
}

// Viewport returns the presented size.
func (v *Viewer) Viewport() (width, height int) {
	return v.renderer.Viewport()
}

// SetOrbit places the camera on its orbit around the origin.
func (v *Viewer) SetOrbit(yaw, pitch, distance float64) {
	v.renderer.Camera.SetOrbit(yaw, pitch, distance)
}

// RenderFrame draws and presents one frame. Without a surface or with an
// empty viewport it does nothing.
func (v *Viewer) RenderFrame(frameTimeNanos int64) {
	w, h := v.renderer.Viewport()
	if v.surface == nil || w == 0 || h == 0 {
		return
	}
	start := time.Now()

	v.renderer.Begin()
	if m := v.model; m != nil {
		world := m.animator.WorldTransforms()
		for _, e := range m.entities {
			node := &m.scene.Nodes[e.node]
			for i := range e.prims {
				p := &e.prims[i]
				if p.skinned != nil {
					p.skinned.deform(m.animator.JointMatrices(node.Skin))
					v.renderer.Draw(p.skinned, math3d.Identity(), &p.surf, uint32(e.id))
					continue
				}
				v.renderer.Draw(p.mesh, world[e.node], &p.surf, uint32(e.id))
			}
		}
	}
	frame := v.renderer.End(time.Since(start))
	v.frame.Store(frame)
	v.surface.Present(v.renderer.Output)

	v.frames++
	cs := v.renderer.Raster.CullingStats
	v.stats = Stats{
		Drawn:  cs.MeshesDrawn,
		Culled: cs.MeshesCulled,
		Scale:  v.renderer.Scale(),
		Frames: v.frames,
	}
	if m := v.model; m != nil {
		v.stats.Entities = len(m.entities)
		v.stats.Triangles = m.tris
	}
	Logger().Debug("frame", "ts", frameTimeNanos, "drawn", cs.MeshesDrawn, "cost", time.Since(start))
}

// Frame returns the last presented frame snapshot, or nil.
func (v *Viewer) Frame() *render.Frame {
	return v.frame.Load()
}

// Stats returns counters for the last rendered frame.
func (v *Viewer) Stats() Stats {
	return v.stats
}

// Animator returns the current model's animator, or nil.
func (v *Viewer) Animator() *anim.Animator {
	if v.model == nil {
		return nil
	}
	return v.model.animator
}

// ModelBounds returns the authored bounds of the current model. It
// returns ErrNoModel without a model or when the model draws nothing.
func (v *Viewer) ModelBounds() (lo, hi math3d.Vec3, err error) {
	if v.model == nil {
		return lo, hi, ErrNoModel
	}
	lo, hi, ok := v.model.scene.Bounds()
	if !ok {
		return lo, hi, ErrNoModel
	}
	return lo, hi, nil
}

// TransformToUnitCube centers the model at the origin and scales it to
// fit the [-1, 1] cube.
func (v *Viewer) TransformToUnitCube() {
	lo, hi, err := v.ModelBounds()
	if err != nil {
		return
	}
	center := lo.Add(hi).Scale(0.5)
	extent := hi.Sub(lo).MaxComponent()
	scale := 1.0
	if extent > 0 {
		scale = 2 / extent
	}
	v.model.animator.SetRoot(math3d.ScaleUniform(scale).Mul(math3d.Translate(center.Negate())))
}

// ClearRootTransform renders the model at its authored scale and position.
func (v *Viewer) ClearRootTransform() {
	if v.model == nil {
		return
	}
	v.model.animator.SetRoot(math3d.Identity())
}

func (v *Viewer) lookup(e Entity) *entity {
	if v.model == nil || e == NullEntity {
		return nil
	}
	return v.model.byID[e]
}

// HasEntity reports whether e belongs to the current model.
func (v *Viewer) HasEntity(e Entity) bool {
	return v.lookup(e) != nil
}

// PrimitiveCount returns the number of primitive slots of e.
func (v *Viewer) PrimitiveCount(e Entity) int {
	if ent := v.lookup(e); ent != nil {
		return len(ent.prims)
	}
	return 0
}

// PrimitiveTint returns the base color factor of one slot.
func (v *Viewer) PrimitiveTint(e Entity, slot int) ([4]float64, bool) {
	ent := v.lookup(e)
	if ent == nil || slot < 0 || slot >= len(ent.prims) {
		return [4]float64{}, false
	}
	return ent.prims[slot].surf.BaseColor, true
}

// SetPrimitiveTint overrides the base color factor of one slot. Unknown
// entities and slots are ignored.
func (v *Viewer) SetPrimitiveTint(e Entity, slot int, rgba [4]float64) {
	ent := v.lookup(e)
	if ent == nil || slot < 0 || slot >= len(ent.prims) {
		return
	}
	ent.prims[slot].surf.BaseColor = rgba
}

// EntityName returns the glTF node name of e.
func (v *Viewer) EntityName(e Entity) string {
	if ent := v.lookup(e); ent != nil {
		return ent.name
	}
	return ""
}
