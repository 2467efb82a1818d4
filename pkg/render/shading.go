package render

import (
	"math"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Environment supplies image-based lighting. Implementations must be safe
// for concurrent reads.
type Environment interface {
	// Irradiance is the diffuse environment light arriving along normal n.
	Irradiance(n math3d.Vec3) math3d.Vec3
	// Radiance is the prefiltered reflection along dir for a roughness.
	Radiance(dir math3d.Vec3, roughness float64) math3d.Vec3
	// Background is the skybox color seen along dir, and false when there
	// is no skybox.
	Background(dir math3d.Vec3) (math3d.Vec3, bool)
}

// Light is a directional light. Direction points from the surface toward
// the light.
type Light struct {
	Direction math3d.Vec3
	Color     math3d.Vec3 // linear, premultiplied by intensity
}

// DefaultSun is the key light used when a scene brings none.
func DefaultSun() Light {
	return Light{
		Direction: math3d.V3(0.5, 0.8, 0.6).Normalize(),
		Color:     math3d.V3(2.2, 2.1, 2.0),
	}
}

// Surface is the shading input of one primitive.
type Surface struct {
	BaseColor   [4]float64 // linear RGBA factor, multiplied with the texture
	Texture     *Texture
	Metallic    float64
	Roughness   float64
	Emissive    math3d.Vec3
	DoubleSided bool
}

// Lighting bundles the per-frame light state.
type Lighting struct {
	Sun Light
	Env Environment // nil for a constant ambient term
	// Intensity scales the environment. 1 is the reference exposure.
	Intensity float64
	Ambient   math3d.Vec3 // used when Env is nil
}

// DefaultLighting returns a sun with a flat gray ambient.
func DefaultLighting() Lighting {
	return Lighting{
		Sun:       DefaultSun(),
		Intensity: 1,
		Ambient:   math3d.V3(0.25, 0.25, 0.28),
	}
}

// Shade evaluates Lambert diffuse plus a normalized Blinn-Phong lobe.
// n and v (toward the eye) must be unit vectors.
func (l *Lighting) Shade(s *Surface, base math3d.Vec3, n, v math3d.Vec3) math3d.Vec3 {
	metal := clamp01(s.Metallic)
	rough := math.Max(0.04, clamp01(s.Roughness))

	diffuseColor := base.Scale(1 - metal)
	f0 := math3d.V3(0.04, 0.04, 0.04).Lerp(base, metal)

	ambient := l.Ambient
	var reflection math3d.Vec3
	if l.Env != nil {
		ambient = l.Env.Irradiance(n).Scale(l.Intensity)
		r := n.Scale(2 * n.Dot(v)).Sub(v)
		reflection = l.Env.Radiance(r, rough).Scale(l.Intensity)
	} else {
		reflection = l.Ambient
	}

	out := diffuseColor.Mul(ambient)
	out = out.Add(f0.Mul(reflection).Scale(1 - rough*0.5))

	ndl := n.Dot(l.Sun.Direction)
	if ndl > 0 {
		h := l.Sun.Direction.Add(v).Normalize()
		shininess := math.Min(1024, 2/(rough*rough*rough*rough)-2)
		spec := math.Pow(math.Max(0, n.Dot(h)), math.Max(1, shininess)) * (shininess + 8) / (8 * math.Pi)
		lobe := diffuseColor.Scale(1 / math.Pi).Add(f0.Scale(spec))
		out = out.Add(lobe.Mul(l.Sun.Color).Scale(ndl * math.Pi))
	}
	return out.Add(s.Emissive)
}
