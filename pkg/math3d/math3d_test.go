package math3d

import (
	"math"
	"testing"
)

const eps = 1e-9

func mat4Near(a, b Mat4) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-6 {
			return false
		}
	}
	return true
}

func vec3Near(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6 && math.Abs(a.Z-b.Z) < 1e-6
}

func TestInverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"identity", Identity()},
		{"translate", Translate(V3(1, -2, 3))},
		{"scale", Scale(V3(2, 3, 4))},
		{"rotate", RotateX(0.3).Mul(RotateY(1.1))},
		{"trs", TRS(V3(4, 5, 6), QuatAxisAngle(V3(1, 2, 3), 0.8), V3(0.5, 2, 1.5))},
		{"perspective", Perspective(math.Pi/3, 1.5, 0.1, 100)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.m.Mul(tc.m.Inverse())
			if !mat4Near(got, Identity()) {
				t.Errorf("m * m.Inverse() = %v, want identity", got)
			}
		})
	}
}

func TestInverseSingular(t *testing.T) {
	var m Mat4
	if got := m.Inverse(); got != Identity() {
		t.Errorf("singular Inverse() = %v, want identity", got)
	}
}

func TestQuatMat4MatchesAxisRotation(t *testing.T) {
	q := QuatAxisAngle(V3(0, 1, 0), 0.5)
	if !mat4Near(q.Mat4(), RotateY(0.5)) {
		t.Errorf("quat matrix = %v, want %v", q.Mat4(), RotateY(0.5))
	}
	q = QuatAxisAngle(V3(1, 0, 0), -1.2)
	if !mat4Near(q.Mat4(), RotateX(-1.2)) {
		t.Errorf("quat matrix = %v, want %v", q.Mat4(), RotateX(-1.2))
	}
}

func TestQuatSlerpEndpointsAndMidpoint(t *testing.T) {
	a := QuatIdentity()
	b := QuatAxisAngle(V3(0, 0, 1), math.Pi/2)

	if got := a.Slerp(b, 0); math.Abs(got.W-1) > eps {
		t.Errorf("Slerp(0) = %v, want identity", got)
	}
	mid := a.Slerp(b, 0.5)
	want := QuatAxisAngle(V3(0, 0, 1), math.Pi/4)
	if math.Abs(mid.Z-want.Z) > 1e-9 || math.Abs(mid.W-want.W) > 1e-9 {
		t.Errorf("Slerp(0.5) = %v, want %v", mid, want)
	}
}

func TestQuatFromArrayZeroIsIdentity(t *testing.T) {
	if got := QuatFromArray([4]float64{}); got != QuatIdentity() {
		t.Errorf("QuatFromArray(zero) = %v, want identity", got)
	}
	if got := Mat4FromArray([16]float64{}); got != Identity() {
		t.Errorf("Mat4FromArray(zero) = %v, want identity", got)
	}
}

func TestTRSOrder(t *testing.T) {
	// scale first, then rotate, then translate
	m := TRS(V3(10, 0, 0), QuatAxisAngle(V3(0, 0, 1), math.Pi/2), V3(2, 2, 2))
	got := m.MulVec3(V3(1, 0, 0))
	if !vec3Near(got, V3(10, 2, 0)) {
		t.Errorf("TRS * (1,0,0) = %v, want (10,2,0)", got)
	}
}

func TestNormalizeZero(t *testing.T) {
	if got := Zero3().Normalize(); got != Zero3() {
		t.Errorf("Zero3().Normalize() = %v, want zero", got)
	}
}
