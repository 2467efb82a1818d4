package models

import (
	"image"

	"github.com/taigrr/glbview/pkg/math3d"
)

// Scene is a decoded glTF document. Slice indices match the glTF indices of
// the source document, so node, mesh, material and skin references stay
// plain ints.
type Scene struct {
	Name       string
	Nodes      []Node
	Roots      []int
	Meshes     []MeshGroup
	Materials  []Material
	Textures   []image.Image // by glTF texture index; nil when undecodable
	Skins      []Skin
	Animations []Animation
}

// Node is one glTF node with its local transform.
type Node struct {
	Name     string
	Parent   int // -1 for roots
	Children []int

	Translation math3d.Vec3
	Rotation    math3d.Quat
	Scale       math3d.Vec3

	// Matrix overrides TRS when HasMatrix is set. Animated nodes never
	// carry a matrix.
	Matrix    math3d.Mat4
	HasMatrix bool

	Mesh int // -1 when the node draws nothing
	Skin int // -1 when unskinned
}

// LocalTransform returns the node's transform relative to its parent.
func (n *Node) LocalTransform() math3d.Mat4 {
	if n.HasMatrix {
		return n.Matrix
	}
	return math3d.TRS(n.Translation, n.Rotation, n.Scale)
}

// MeshGroup is a glTF mesh: an ordered set of primitives drawn together
// by one node.
type MeshGroup struct {
	Name       string
	Primitives []Primitive
}

// Primitive pairs geometry with its material index (-1 for the default
// material).
type Primitive struct {
	Mesh     *Mesh
	Material int
}

// Material is the metallic-roughness subset glbview shades with.
type Material struct {
	Name        string
	BaseColor   [4]float64 // RGBA in 0-1 range
	Metallic    float64    // 0 = dielectric, 1 = metal
	Roughness   float64    // 0 = smooth, 1 = rough
	Emissive    [3]float64
	BaseTexture int // texture index, -1 for none
	DoubleSided bool
}

// DefaultMaterial is the glTF default material: white, fully metallic,
// fully rough.
func DefaultMaterial() Material {
	return Material{
		Name:        "default",
		BaseColor:   [4]float64{1, 1, 1, 1},
		Metallic:    1,
		Roughness:   1,
		BaseTexture: -1,
	}
}

// Skin binds mesh vertices to a joint hierarchy.
type Skin struct {
	Name        string
	Joints      []int         // node indices
	InverseBind []math3d.Mat4 // one per joint
	Skeleton    int           // -1 when unspecified
}

// MaterialAt returns the material for index i, falling back to the default
// material for -1 or an out-of-range index.
func (s *Scene) MaterialAt(i int) Material {
	if i < 0 || i >= len(s.Materials) {
		return DefaultMaterial()
	}
	return s.Materials[i]
}

// TriangleCount totals triangles across every mesh.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, g := range s.Meshes {
		for _, p := range g.Primitives {
			n += p.Mesh.TriangleCount()
		}
	}
	return n
}

// WorldTransforms computes node world matrices from local transforms.
func (s *Scene) WorldTransforms(root math3d.Mat4) []math3d.Mat4 {
	world := make([]math3d.Mat4, len(s.Nodes))
	var visit func(i int, parent math3d.Mat4)
	visit = func(i int, parent math3d.Mat4) {
		world[i] = parent.Mul(s.Nodes[i].LocalTransform())
		for _, c := range s.Nodes[i].Children {
			visit(c, world[i])
		}
	}
	for _, r := range s.Roots {
		visit(r, root)
	}
	return world
}

// Bounds returns the world-space bounding box of every mesh node in its
// rest pose.
func (s *Scene) Bounds() (min, max math3d.Vec3, ok bool) {
	world := s.WorldTransforms(math3d.Identity())
	for i, n := range s.Nodes {
		if n.Mesh < 0 {
			continue
		}
		for _, p := range s.Meshes[n.Mesh].Primitives {
			for _, v := range p.Mesh.Vertices {
				wp := world[i].MulVec3(v.Position)
				if !ok {
					min, max, ok = wp, wp, true
					continue
				}
				min = min.Min(wp)
				max = max.Max(wp)
			}
		}
	}
	return min, max, ok
}
