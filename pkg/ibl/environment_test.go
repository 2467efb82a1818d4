package ibl

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/taigrr/glbview/pkg/math3d"
)

func TestFaceCoordsRoundTrip(t *testing.T) {
	c := &Cubemap{Size: 4}
	for face := range 6 {
		for y := range c.Size {
			for x := range c.Size {
				d := c.Direction(face, x, y)
				gotFace, u, v := faceCoords(d)
				gx, gy := int(u*float64(c.Size)), int(v*float64(c.Size))
				if gotFace != face || gx != x || gy != y {
					t.Errorf("face %d texel (%d,%d): round trip gave face %d (%d,%d)", face, x, y, gotFace, gx, gy)
				}
			}
		}
	}
}

func TestProjectSHConstant(t *testing.T) {
	c := &Cubemap{Size: 8}
	for i := range c.Faces {
		c.Faces[i] = make([]math3d.Vec3, 64)
		for k := range c.Faces[i] {
			c.Faces[i][k] = math3d.V3(0.5, 1, 2)
		}
	}
	sh := ProjectSH(c)

	for _, n := range []math3d.Vec3{
		math3d.V3(1, 0, 0), math3d.V3(0, -1, 0), math3d.V3(0, 0, 1),
		math3d.V3(1, 1, 1).Normalize(),
	} {
		if got := sh.Eval(n); !near(got, math3d.V3(0.5, 1, 2), 0.02) {
			t.Errorf("Eval(%v) = %v, want about (0.5, 1, 2)", n, got)
		}
	}
}

func TestProjectSHDirectional(t *testing.T) {
	// light only on the +Y face
	c := &Cubemap{Size: 8}
	for i := range c.Faces {
		c.Faces[i] = make([]math3d.Vec3, 64)
		if i == FacePosY {
			for k := range c.Faces[i] {
				c.Faces[i][k] = math3d.One3()
			}
		}
	}
	sh := ProjectSH(c)
	up, down := sh.Eval(math3d.V3(0, 1, 0)), sh.Eval(math3d.V3(0, -1, 0))
	if up.X <= down.X {
		t.Errorf("Eval(up) = %v should exceed Eval(down) = %v", up, down)
	}
}

func TestParseSHRoundTrip(t *testing.T) {
	var sh SH
	for i := range sh {
		sh[i] = math3d.V3(float64(i), -float64(i)/2, 0.125)
	}
	got, err := ParseSH(sh.String())
	if err != nil {
		t.Fatalf("ParseSH: %v", err)
	}
	if got != sh {
		t.Errorf("ParseSH(String()) = %v, want %v", got, sh)
	}
	if _, err := ParseSH("1 2 x"); !errors.Is(err, ErrFormat) {
		t.Errorf("ParseSH(garbage) error = %v, want ErrFormat", err)
	}
}

func TestNewEnvironment(t *testing.T) {
	le := binary.LittleEndian
	iblData := constantCube(le, 4, 3, func(level int) math3d.Vec3 {
		return math3d.V3(float64(level), 0, 1)
	})
	sky := constantCube(le, 2, 1, func(int) math3d.Vec3 { return math3d.V3(0.1, 0.2, 0.3) })

	env, err := NewEnvironment(sky, iblData)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}

	if got := env.Radiance(math3d.V3(0, 0, 1), 0); got != math3d.V3(0, 0, 1) {
		t.Errorf("Radiance(rough 0) = %v, want mip 0", got)
	}
	if got := env.Radiance(math3d.V3(0, 0, 1), 1); got != math3d.V3(2, 0, 1) {
		t.Errorf("Radiance(rough 1) = %v, want mip 2", got)
	}
	// projected from the smallest mip, a constant (2, 0, 1)
	if got := env.Irradiance(math3d.V3(0, 1, 0)); !near(got, math3d.V3(2, 0, 1), 0.05) {
		t.Errorf("Irradiance = %v, want about (2, 0, 1)", got)
	}
	bg, ok := env.Background(math3d.V3(1, 0, 0))
	if !ok || !near(bg, math3d.V3(0.1, 0.2, 0.3), 1e-6) {
		t.Errorf("Background = %v, %v, want sky color", bg, ok)
	}
}

func TestNewEnvironmentBakedSH(t *testing.T) {
	var sh SH
	sh[0] = math3d.V3(3, 3, 3)
	data := buildKTX(ktxOpts{
		glType: glFloat, glFormat: glRGB, pixelSize: 12,
		size: 1, faces: 6, levels: 1,
		kv: map[string]string{"sh": sh.String()},
		texel: func(_, _, _, _ int) []byte {
			return floatTexel(binary.LittleEndian, math3d.Zero3())
		},
	})
	env, err := NewEnvironment(nil, data)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	if got := env.Irradiance(math3d.V3(0, 0, 1)); got != math3d.V3(3, 3, 3) {
		t.Errorf("Irradiance = %v, want baked (3, 3, 3)", got)
	}
	if _, ok := env.Background(math3d.V3(0, 0, 1)); ok {
		t.Error("Background should report no skybox")
	}
}

func TestNewEnvironmentErrors(t *testing.T) {
	flat := buildKTX(ktxOpts{
		glType: glFloat, glFormat: glRGB, pixelSize: 12,
		size: 2, faces: 1, levels: 1,
		texel: func(_, _, _, _ int) []byte { return floatTexel(binary.LittleEndian, math3d.One3()) },
	})
	cube := constantCube(binary.LittleEndian, 2, 1, func(int) math3d.Vec3 { return math3d.One3() })

	tests := []struct {
		name     string
		sky, ibl []byte
	}{
		{"garbage ibl", cube, []byte("not a ktx")},
		{"garbage sky", []byte("not a ktx"), cube},
		{"2D ibl", cube, flat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEnvironment(tc.sky, tc.ibl); !errors.Is(err, ErrFormat) {
				t.Errorf("NewEnvironment error = %v, want ErrFormat", err)
			}
		})
	}
}

func BenchmarkProjectSH(b *testing.B) {
	c := &Cubemap{Size: 16}
	for i := range c.Faces {
		c.Faces[i] = make([]math3d.Vec3, 256)
		for k := range c.Faces[i] {
			c.Faces[i][k] = math3d.V3(math.Sin(float64(k)), 0.5, 0.25)
		}
	}
	for b.Loop() {
		_ = ProjectSH(c)
	}
}
