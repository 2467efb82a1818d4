package engine

import (
	"github.com/taigrr/glbview/pkg/math3d"
	"github.com/taigrr/glbview/pkg/models"
)

// skinnedMesh is a mesh deformed on the CPU by linear blend skinning. It
// implements render.BoundedMeshRenderer over the deformed positions.
type skinnedMesh struct {
	src       *models.Mesh
	positions []math3d.Vec3
	normals   []math3d.Vec3
	min, max  math3d.Vec3
}

func newSkinnedMesh(src *models.Mesh) *skinnedMesh {
	return &skinnedMesh{
		src:       src,
		positions: make([]math3d.Vec3, len(src.Vertices)),
		normals:   make([]math3d.Vec3, len(src.Vertices)),
	}
}

// deform poses the source vertices with joint matrices that map bind space
// to world space.
func (s *skinnedMesh) deform(joints []math3d.Mat4) {
	for i, v := range s.src.Vertices {
		var pos, nrm math3d.Vec3
		total := 0.0
		for k, w := range v.Weights {
			j := v.Joints[k]
			if w == 0 || j < 0 || j >= len(joints) {
				continue
			}
			pos = pos.Add(joints[j].MulVec3(v.Position).Scale(w))
			nrm = nrm.Add(joints[j].MulVec3Dir(v.Normal).Scale(w))
			total += w
		}
		if total == 0 {
			pos, nrm = v.Position, v.Normal
		} else if total != 1 {
			pos = pos.Scale(1 / total)
		}
		s.positions[i] = pos
		s.normals[i] = nrm.Normalize()

		if i == 0 {
			s.min, s.max = pos, pos
		} else {
			s.min, s.max = s.min.Min(pos), s.max.Max(pos)
		}
	}
}

func (s *skinnedMesh) VertexCount() int   { return len(s.positions) }
func (s *skinnedMesh) TriangleCount() int { return len(s.src.Faces) }

func (s *skinnedMesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	return s.positions[i], s.normals[i], s.src.Vertices[i].UV
}

func (s *skinnedMesh) GetFace(i int) [3]int {
	return s.src.Faces[i].V
}

func (s *skinnedMesh) GetBounds() (min, max math3d.Vec3) {
	return s.min, s.max
}
