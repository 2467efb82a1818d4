package render

import (
	"math"

	"github.com/taigrr/glbview/pkg/math3d"
)

// MeshRenderer is the geometry the rasterizer consumes. It keeps render
// free of a models import.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer extends MeshRenderer with bounding box support for frustum culling.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() (min, max math3d.Vec3)
}

// CullingStats tracks frustum culling performance.
type CullingStats struct {
	MeshesTested   int // Total meshes tested for culling
	MeshesCulled   int // Meshes culled (not rendered)
	MeshesDrawn    int // Meshes that passed culling
	TrianglesDrawn int // Triangles that reached the pixel loop
}

// Rasterizer draws shaded, pickable triangles into a Target.
type Rasterizer struct {
	camera   *Camera
	target   *Target
	frustum  Frustum
	Lighting Lighting

	CullingStats CullingStats
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, target *Target) *Rasterizer {
	return &Rasterizer{
		camera:   camera,
		target:   target,
		Lighting: DefaultLighting(),
	}
}

// SetTarget swaps the buffers drawn into.
func (r *Rasterizer) SetTarget(t *Target) {
	r.target = t
}

// Target returns the buffers drawn into.
func (r *Rasterizer) Target() *Target {
	return r.target
}

// Begin clears the target and caches the frustum for a new frame.
func (r *Rasterizer) Begin() {
	r.target.Clear()
	r.frustum = r.camera.Frustum()
	r.CullingStats = CullingStats{}
}

// IsVisible tests if a world-space AABB is visible in the frustum.
func (r *Rasterizer) IsVisible(worldBounds AABB) bool {
	return r.frustum.IntersectAABB(worldBounds)
}

// tryFrustumCull reports whether a bounded mesh lies fully outside the view.
func (r *Rasterizer) tryFrustumCull(mesh MeshRenderer, transform math3d.Mat4) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}

	r.CullingStats.MeshesTested++
	lo, hi := bounded.GetBounds()
	if !r.IsVisible(NewAABB(lo, hi).Transform(transform)) {
		r.CullingStats.MeshesCulled++
		return true
	}
	r.CullingStats.MeshesDrawn++
	return false
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y   float64 // Screen coordinates
	Z      float64 // NDC depth
	W      float64 // clip W, the view-space depth
	World  math3d.Vec3
	Normal math3d.Vec3
	UV     math3d.Vec2
}

// DrawMesh renders a mesh with a model transform, tagging every covered
// sample with id. Returns false when the mesh was culled.
func (r *Rasterizer) DrawMesh(mesh MeshRenderer, transform math3d.Mat4, surf *Surface, id uint32) bool {
	if r.target == nil || r.target.Width == 0 || r.target.Height == 0 {
		return false
	}
	if r.tryFrustumCull(mesh, transform) {
		return false
	}

	normalMat := transform.Inverse().Transpose()
	viewProj := r.camera.ViewProjectionMatrix()
	eye := r.camera.Position()

	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		var sv [3]screenVertex
		clipped := false
		for k, vi := range face {
			pos, normal, uv := mesh.GetVertex(vi)
			world := transform.MulVec3(pos)
			clip := viewProj.MulVec4(math3d.V4FromV3(world, 1))
			if clip.W <= r.camera.Near*0.5 {
				clipped = true
				break
			}
			ndc := clip.PerspectiveDivide()
			sv[k] = screenVertex{
				X:      (ndc.X + 1) * 0.5 * float64(r.target.Width),
				Y:      (1 - ndc.Y) * 0.5 * float64(r.target.Height),
				Z:      ndc.Z,
				W:      clip.W,
				World:  world,
				Normal: normalMat.MulVec3Dir(normal).Normalize(),
				UV:     uv,
			}
		}
		// TODO: clip against the near plane instead of dropping the triangle.
		if clipped {
			continue
		}
		r.rasterize(&sv, surf, id, eye)
	}
	return true
}

func (r *Rasterizer) rasterize(sv *[3]screenVertex, surf *Surface, id uint32, eye math3d.Vec3) {
	t := r.target

	// Backface culling (using screen-space winding)
	cross := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if cross == 0 {
		return
	}
	back := cross < 0
	if back && !surf.DoubleSided {
		return
	}

	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(t.Width-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(t.Height-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))
	if minX > maxX || minY > maxY {
		return
	}
	r.CullingStats.TrianglesDrawn++

	var invW [3]float64
	for i := range 3 {
		invW[i] = 1.0 / sv[i].W
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			bc := barycentric(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			idx := y*t.Width + x
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z
			if z >= t.Depth[idx] || z < -1 || z > 1 {
				continue
			}

			// Perspective-correct attributes: interpolate a/w and 1/w.
			w0, w1, w2 := bc.X*invW[0], bc.Y*invW[1], bc.Z*invW[2]
			oneOverW := w0 + w1 + w2
			if oneOverW <= 0 {
				continue
			}
			persp := func(a, b, c float64) float64 {
				return (w0*a + w1*b + w2*c) / oneOverW
			}

			n := math3d.V3(
				persp(sv[0].Normal.X, sv[1].Normal.X, sv[2].Normal.X),
				persp(sv[0].Normal.Y, sv[1].Normal.Y, sv[2].Normal.Y),
				persp(sv[0].Normal.Z, sv[1].Normal.Z, sv[2].Normal.Z),
			).Normalize()
			if back {
				n = n.Negate()
			}
			world := math3d.V3(
				persp(sv[0].World.X, sv[1].World.X, sv[2].World.X),
				persp(sv[0].World.Y, sv[1].World.Y, sv[2].World.Y),
				persp(sv[0].World.Z, sv[1].World.Z, sv[2].World.Z),
			)

			base := math3d.V3(surf.BaseColor[0], surf.BaseColor[1], surf.BaseColor[2])
			if surf.Texture != nil {
				u := persp(sv[0].UV.X, sv[1].UV.X, sv[2].UV.X)
				v := persp(sv[0].UV.Y, sv[1].UV.Y, sv[2].UV.Y)
				texel, _ := surf.Texture.SampleLinear(u, v)
				base = base.Mul(texel)
			}

			view := eye.Sub(world).Normalize()
			t.HDR[idx] = r.Lighting.Shade(surf, base, n, view)
			t.Depth[idx] = z
			t.View[idx] = 1 / oneOverW
			t.IDs[idx] = id
		}
	}
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
