package math3d

import "math"

// Mat4 is a 4x4 matrix stored in column-major order, the same layout glTF
// uses for node matrices and inverse bind matrices.
//
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4FromArray converts a column-major glTF matrix. The all-zero matrix
// (an unset field) becomes identity.
func Mat4FromArray[T float32 | float64](a [16]T) Mat4 {
	var m Mat4
	zero := true
	for i, v := range a {
		m[i] = float64(v)
		if v != 0 {
			zero = false
		}
	}
	if zero {
		return Identity()
	}
	return m
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// ScaleUniform creates a uniform scaling matrix.
func ScaleUniform(s float64) Mat4 {
	return Scale(V3(s, s, s))
}

// RotateX creates a rotation matrix around the X axis.
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[5], m[6], m[9], m[10] = c, s, -s, c
	return m
}

// RotateY creates a rotation matrix around the Y axis.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0], m[2], m[8], m[10] = c, -s, s, c
	return m
}

// TRS composes translation * rotation * scale, the glTF node order.
func TRS(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.Mat4()
	for col := range 3 {
		f := [3]float64{s.X, s.Y, s.Z}[col]
		m[col*4] *= f
		m[col*4+1] *= f
		m[col*4+2] *= f
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// LookAt creates a view matrix looking from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective creates an OpenGL-style perspective projection.
// fovy is the vertical field of view in radians.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Mul multiplies two matrices: a * b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += a[row+k*4] * b[k+col*4]
			}
			m[row+col*4] = sum
		}
	}
	return m
}

// MulVec3 transforms a point (w=1) with perspective divide.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 1)).PerspectiveDivide()
}

// MulVec3Dir transforms a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// MulVec4 transforms a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// Add returns the element-wise sum, used for blending joint matrices.
func (a Mat4) Add(b Mat4) Mat4 {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// ScaleBy multiplies every element by s.
func (a Mat4) ScaleBy(s float64) Mat4 {
	for i := range a {
		a[i] *= s
	}
	return a
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	for row := range 4 {
		for col := range 4 {
			t[col+row*4] = m[row+col*4]
		}
	}
	return t
}

// Inverse returns the inverse of the matrix, or identity if it is singular.
// It expands along 2x2 sub-determinants of the upper and lower halves.
func (m Mat4) Inverse() Mat4 {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[9] - m[8]*m[1]
	s2 := m[0]*m[13] - m[12]*m[1]
	s3 := m[4]*m[9] - m[8]*m[5]
	s4 := m[4]*m[13] - m[12]*m[5]
	s5 := m[8]*m[13] - m[12]*m[9]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[6]*m[15] - m[14]*m[7]
	c3 := m[6]*m[11] - m[10]*m[7]
	c2 := m[2]*m[15] - m[14]*m[3]
	c1 := m[2]*m[11] - m[10]*m[3]
	c0 := m[2]*m[7] - m[6]*m[3]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	// Row/column naming below is in row-major terms: a_rc = m[r+c*4].
	var r Mat4
	r[0] = (m[5]*c5 - m[9]*c4 + m[13]*c3) * inv
	r[4] = (-m[4]*c5 + m[8]*c4 - m[12]*c3) * inv
	r[8] = (m[7]*s5 - m[11]*s4 + m[15]*s3) * inv
	r[12] = (-m[6]*s5 + m[10]*s4 - m[14]*s3) * inv

	r[1] = (-m[1]*c5 + m[9]*c2 - m[13]*c1) * inv
	r[5] = (m[0]*c5 - m[8]*c2 + m[12]*c1) * inv
	r[9] = (-m[3]*s5 + m[11]*s2 - m[15]*s1) * inv
	r[13] = (m[2]*s5 - m[10]*s2 + m[14]*s1) * inv

	r[2] = (m[1]*c4 - m[5]*c2 + m[13]*c0) * inv
	r[6] = (-m[0]*c4 + m[4]*c2 - m[12]*c0) * inv
	r[10] = (m[3]*s4 - m[7]*s2 + m[15]*s0) * inv
	r[14] = (-m[2]*s4 + m[6]*s2 - m[14]*s0) * inv

	r[3] = (-m[1]*c3 + m[5]*c1 - m[9]*c0) * inv
	r[7] = (m[0]*c3 - m[4]*c1 + m[8]*c0) * inv
	r[11] = (-m[3]*s3 + m[7]*s1 - m[11]*s0) * inv
	r[15] = (m[2]*s3 - m[6]*s1 + m[10]*s0) * inv

	return r
}

// Translation extracts the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}
