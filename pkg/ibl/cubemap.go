package ibl

import (
	"fmt"
	"math"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Cube face order, matching OpenGL and KTX.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// Cubemap is one square mip level of six faces.
type Cubemap struct {
	Size  int
	Faces [6][]math3d.Vec3
}

// Cubemaps returns every mip level of a cube texture, largest first.
func (t *Texture) Cubemaps() ([]*Cubemap, error) {
	if !t.IsCubemap() {
		return nil, fmt.Errorf("%w: not a cubemap", ErrFormat)
	}
	out := make([]*Cubemap, 0, len(t.Levels))
	for i, l := range t.Levels {
		if len(l.Faces) != 6 {
			return nil, fmt.Errorf("%w: level %d has %d faces", ErrFormat, i, len(l.Faces))
		}
		c := &Cubemap{Size: l.Size}
		copy(c.Faces[:], l.Faces)
		out = append(out, c)
	}
	return out, nil
}

// Direction returns the unit direction through texel center (x, y) of a
// face.
func (c *Cubemap) Direction(face, x, y int) math3d.Vec3 {
	s := (float64(x)+0.5)/float64(c.Size)*2 - 1
	t := (float64(y)+0.5)/float64(c.Size)*2 - 1
	return faceDirection(face, s, t).Normalize()
}

func faceDirection(face int, s, t float64) math3d.Vec3 {
	switch face {
	case FacePosX:
		return math3d.V3(1, -t, -s)
	case FaceNegX:
		return math3d.V3(-1, -t, s)
	case FacePosY:
		return math3d.V3(s, 1, t)
	case FaceNegY:
		return math3d.V3(s, -1, -t)
	case FacePosZ:
		return math3d.V3(s, -t, 1)
	default:
		return math3d.V3(-s, -t, -1)
	}
}

// faceCoords picks the face a direction hits and the [0, 1) texel
// coordinates on it.
func faceCoords(d math3d.Vec3) (face int, u, v float64) {
	ax, ay, az := math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z)
	var sc, tc, ma float64
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if d.X > 0 {
			face, sc, tc = FacePosX, -d.Z, -d.Y
		} else {
			face, sc, tc = FaceNegX, d.Z, -d.Y
		}
	case ay >= az:
		ma = ay
		if d.Y > 0 {
			face, sc, tc = FacePosY, d.X, d.Z
		} else {
			face, sc, tc = FaceNegY, d.X, -d.Z
		}
	default:
		ma = az
		if d.Z > 0 {
			face, sc, tc = FacePosZ, d.X, -d.Y
		} else {
			face, sc, tc = FaceNegZ, -d.X, -d.Y
		}
	}
	if ma == 0 {
		return FacePosZ, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

// Sample returns the nearest texel along direction d.
func (c *Cubemap) Sample(d math3d.Vec3) math3d.Vec3 {
	if c == nil || c.Size == 0 {
		return math3d.Vec3{}
	}
	face, u, v := faceCoords(d)
	x := min(c.Size-1, max(0, int(u*float64(c.Size))))
	y := min(c.Size-1, max(0, int(v*float64(c.Size))))
	return c.Faces[face][y*c.Size+x]
}

// texelSolidAngle approximates the solid angle of texel (x, y).
func (c *Cubemap) texelSolidAngle(x, y int) float64 {
	s := (float64(x)+0.5)/float64(c.Size)*2 - 1
	t := (float64(y)+0.5)/float64(c.Size)*2 - 1
	da := 4 / float64(c.Size*c.Size)
	return da / math.Pow(1+s*s+t*t, 1.5)
}
