package ibl

import (
	"fmt"
	"math"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Environment is the indirect light of a scene: irradiance for diffuse,
// a roughness-indexed mip chain for reflections, and an optional skybox.
// It is immutable once built and safe for concurrent reads.
type Environment struct {
	SH          SH
	Reflections []*Cubemap // mip 0 is the sharpest
	Sky         *Cubemap
}

// NewEnvironment builds the environment from a skybox KTX and an IBL KTX.
// When the IBL has no "sh" metadata the irradiance is projected from its
// lowest-resolution level. A nil skybox blob yields no background.
func NewEnvironment(skybox, iblData []byte) (*Environment, error) {
	iblTex, err := DecodeKTX(iblData)
	if err != nil {
		return nil, fmt.Errorf("ibl: %w", err)
	}
	reflections, err := iblTex.Cubemaps()
	if err != nil {
		return nil, fmt.Errorf("ibl: %w", err)
	}

	env := &Environment{Reflections: reflections}
	sh, ok, err := iblTex.SphericalHarmonics()
	switch {
	case err != nil:
		return nil, fmt.Errorf("ibl: %w", err)
	case ok:
		env.SH = sh
	default:
		env.SH = ProjectSH(reflections[len(reflections)-1])
	}

	if skybox != nil {
		skyTex, err := DecodeKTX(skybox)
		if err != nil {
			return nil, fmt.Errorf("skybox: %w", err)
		}
		sky, err := skyTex.Cubemaps()
		if err != nil {
			return nil, fmt.Errorf("skybox: %w", err)
		}
		env.Sky = sky[0]
	}
	return env, nil
}

// Irradiance returns diffuse light over π arriving along normal n.
func (e *Environment) Irradiance(n math3d.Vec3) math3d.Vec3 {
	return e.SH.Eval(n)
}

// Radiance returns the reflection along dir from the mip that matches
// the roughness.
func (e *Environment) Radiance(dir math3d.Vec3, roughness float64) math3d.Vec3 {
	if len(e.Reflections) == 0 {
		return e.Irradiance(dir)
	}
	r := math.Max(0, math.Min(1, roughness))
	lvl := int(math.Round(r * float64(len(e.Reflections)-1)))
	return e.Reflections[lvl].Sample(dir)
}

// Background returns the skybox color along dir.
func (e *Environment) Background(dir math3d.Vec3) (math3d.Vec3, bool) {
	if e.Sky == nil {
		return math3d.Vec3{}, false
	}
	return e.Sky.Sample(dir), true
}
