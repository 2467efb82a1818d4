package ibl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/taigrr/glbview/pkg/math3d"
)

// SH holds nine RGB coefficients of a band-2 spherical-harmonics
// irradiance approximation with the cosine convolution and the basis
// constants folded in, so that evaluation is a plain polynomial in the
// normal (the layout cmgen writes under the "sh" key):
//
//	E(n)/π = c0 + c1·y + c2·z + c3·x + c4·yx + c5·yz + c6·(3z²-1) + c7·zx + c8·(x²-y²)
type SH [9]math3d.Vec3

// ParseSH reads 27 whitespace-separated floats.
func ParseSH(s string) (SH, error) {
	fields := strings.Fields(s)
	if len(fields) < 27 {
		return SH{}, fmt.Errorf("%w: sh has %d values, want 27", ErrFormat, len(fields))
	}
	var sh SH
	for i := range sh {
		var v [3]float64
		for k := range v {
			f, err := strconv.ParseFloat(fields[i*3+k], 64)
			if err != nil {
				return SH{}, fmt.Errorf("%w: sh value %d: %v", ErrFormat, i*3+k, err)
			}
			v[k] = f
		}
		sh[i] = math3d.V3(v[0], v[1], v[2])
	}
	return sh, nil
}

// Eval returns the diffuse irradiance over π along unit normal n, clamped
// at zero.
func (sh *SH) Eval(n math3d.Vec3) math3d.Vec3 {
	x, y, z := n.X, n.Y, n.Z
	basis := [9]float64{
		1,
		y, z, x,
		y * x, y * z, 3*z*z - 1, z * x, x*x - y*y,
	}
	var out math3d.Vec3
	for i, b := range basis {
		out = out.Add(sh[i].Scale(b))
	}
	return out.Max(math3d.Zero3())
}

// String formats the coefficients the way ParseSH reads them.
func (sh *SH) String() string {
	var b strings.Builder
	for _, c := range sh {
		fmt.Fprintf(&b, "%g %g %g\n", c.X, c.Y, c.Z)
	}
	return b.String()
}

// Real SH basis constants, Y(l,m), in the same order as SH.
var shK = [9]float64{
	0.282095,
	0.488603, 0.488603, 0.488603,
	1.092548, 1.092548, 0.315392, 1.092548, 0.546274,
}

// Cosine-lobe convolution per band, already divided by π.
var shBand = [9]float64{1, 2.0 / 3, 2.0 / 3, 2.0 / 3, 0.25, 0.25, 0.25, 0.25, 0.25}

// ProjectSH integrates a radiance cubemap into irradiance coefficients.
func ProjectSH(c *Cubemap) SH {
	var proj [9]math3d.Vec3
	total := 0.0
	for face := range 6 {
		for y := range c.Size {
			for x := range c.Size {
				d := c.Direction(face, x, y)
				w := c.texelSolidAngle(x, y)
				total += w
				basis := [9]float64{
					1,
					d.Y, d.Z, d.X,
					d.Y * d.X, d.Y * d.Z, 3*d.Z*d.Z - 1, d.Z * d.X, d.X*d.X - d.Y*d.Y,
				}
				radiance := c.Faces[face][y*c.Size+x]
				for i := range proj {
					proj[i] = proj[i].Add(radiance.Scale(shK[i] * basis[i] * w))
				}
			}
		}
	}
	if total == 0 {
		return SH{}
	}
	// rescale the discrete solid angles to exactly 4π
	norm := 4 * math.Pi / total

	var sh SH
	for i := range sh {
		sh[i] = proj[i].Scale(norm * shBand[i] * shK[i])
	}
	return sh
}
