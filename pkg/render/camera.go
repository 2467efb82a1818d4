package render

import (
	"math"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Camera orbits a target point at a fixed distance.
type Camera struct {
	// Orbit parameters (radians)
	Target   math3d.Vec3
	Yaw      float64 // Rotation around the world Y axis
	Pitch    float64 // Elevation above the XZ plane
	Distance float64

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	invViewProj    math3d.Mat4
	dirty          bool
}

const maxPitch = math.Pi/2 - 0.01

// NewCamera creates a camera looking at the origin from +Z, framed for a
// model scaled into the unit cube.
func NewCamera() *Camera {
	return &Camera{
		Distance:    3.5,
		FOV:         math.Pi / 4,
		AspectRatio: 16.0 / 9.0,
		Near:        0.05,
		Far:         100,
		dirty:       true,
	}
}

// SetOrbit places the camera on its orbit. Pitch is clamped short of the
// poles and distance is kept positive.
func (c *Camera) SetOrbit(yaw, pitch, distance float64) {
	c.Yaw = yaw
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, pitch))
	c.Distance = math.Max(c.Near*2, distance)
	c.dirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) {
		return
	}
	c.AspectRatio = aspect
	c.dirty = true
}

// SetTarget moves the orbit center.
func (c *Camera) SetTarget(t math3d.Vec3) {
	c.Target = t
	c.dirty = true
}

// Position returns the eye position in world space.
func (c *Camera) Position() math3d.Vec3 {
	cp := math.Cos(c.Pitch)
	offset := math3d.V3(
		math.Sin(c.Yaw)*cp,
		math.Sin(c.Pitch),
		math.Cos(c.Yaw)*cp,
	)
	return c.Target.Add(offset.Scale(c.Distance))
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Target.Sub(c.Position()).Normalize()
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	c.update()
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	c.update()
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	c.update()
	return c.viewProjMatrix
}

// InverseViewProjection maps NDC back to world space.
func (c *Camera) InverseViewProjection() math3d.Mat4 {
	c.update()
	return c.invViewProj
}

func (c *Camera) update() {
	if !c.dirty {
		return
	}
	c.viewMatrix = math3d.LookAt(c.Position(), c.Target, math3d.Up())
	c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
	c.viewProjMatrix = c.projMatrix.Mul(c.viewMatrix)
	c.invViewProj = c.viewProjMatrix.Inverse()
	c.dirty = false
}

// Frustum returns the current view frustum.
func (c *Camera) Frustum() Frustum {
	return NewFrustumFromMatrix(c.ViewProjectionMatrix())
}

// Ray returns the world-space direction through pixel (px, py) of a
// width x height image with a top-left origin.
func (c *Camera) Ray(px, py float64, width, height int) math3d.Vec3 {
	ndcX := px/float64(width)*2 - 1
	ndcY := 1 - py/float64(height)*2
	inv := c.InverseViewProjection()
	near := inv.MulVec3(math3d.V3(ndcX, ndcY, -1))
	far := inv.MulVec3(math3d.V3(ndcX, ndcY, 1))
	return far.Sub(near).Normalize()
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Check if behind camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float64(screenHeight) // Y is flipped
	return x, y, ndc.Z, true
}
