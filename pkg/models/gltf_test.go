package models

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/glbview/pkg/math3d"
)

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func encodeGLB(t testing.TB, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encode glb: %v", err)
	}
	return buf.Bytes()
}

// triangleDoc is one node drawing one red triangle, translated along x.
func triangleDoc() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 0.25}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name:        "enamel",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{0.8, 0.2, 0.2, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(0.5),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tooth",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: pos, gltf.NORMAL: nrm, gltf.TEXCOORD_0: uv},
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{{
		Name:        "crown",
		Mesh:        gltf.Index(0),
		Translation: [3]float64{2, 0, 0},
		Rotation:    [4]float64{0, 0, 0, 1},
		Scale:       [3]float64{1, 1, 1},
		Matrix:      identity16,
	}}
	doc.Scenes[0].Nodes = []int{0}
	return doc
}

func TestDecodeGLB(t *testing.T) {
	scene, err := DecodeGLB(encodeGLB(t, triangleDoc()))
	if err != nil {
		t.Fatalf("DecodeGLB: %v", err)
	}

	if len(scene.Meshes) != 1 || len(scene.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %+v, want one mesh with one primitive", scene.Meshes)
	}
	prim := scene.Meshes[0].Primitives[0]
	if prim.Material != 0 {
		t.Errorf("primitive material = %d, want 0", prim.Material)
	}
	if prim.Mesh.Name != "tooth#0" {
		t.Errorf("mesh name = %q, want tooth#0", prim.Mesh.Name)
	}
	if got := prim.Mesh.Faces; len(got) != 1 || got[0].V != [3]int{0, 2, 1} {
		t.Errorf("faces = %v, want [{[0 2 1]}]", got)
	}
	if got := prim.Mesh.Vertices[2].UV; got != math3d.V2(0, 0.75) {
		t.Errorf("uv = %v, want (0, 0.75)", got)
	}
	if got := prim.Mesh.Vertices[0].Normal; got != math3d.V3(0, 0, 1) {
		t.Errorf("normal = %v, want (0, 0, 1)", got)
	}
	if prim.Mesh.BoundsMax != math3d.V3(1, 1, 0) {
		t.Errorf("bounds max = %v, want (1, 1, 0)", prim.Mesh.BoundsMax)
	}
	if prim.Mesh.Skinned {
		t.Error("unskinned mesh reported as skinned")
	}

	mat := scene.MaterialAt(0)
	if mat.BaseColor != [4]float64{0.8, 0.2, 0.2, 1} || mat.Metallic != 0 || mat.Roughness != 0.5 || !mat.DoubleSided {
		t.Errorf("material = %+v", mat)
	}

	if len(scene.Nodes) != 1 || scene.Roots[0] != 0 {
		t.Fatalf("nodes = %+v, roots = %v", scene.Nodes, scene.Roots)
	}
	n := scene.Nodes[0]
	if n.Name != "crown" || n.Mesh != 0 || n.Skin != -1 || n.Parent != -1 || n.HasMatrix {
		t.Errorf("node = %+v", n)
	}
	min, max, ok := scene.Bounds()
	if !ok || min != math3d.V3(2, 0, 0) || max != math3d.V3(3, 1, 0) {
		t.Errorf("Bounds() = %v, %v, %v, want (2,0,0) (3,1,0)", min, max, ok)
	}
	if scene.TriangleCount() != 1 {
		t.Errorf("TriangleCount() = %d, want 1", scene.TriangleCount())
	}
}

func TestDecodeGLBGeneratesNormalsAndIndices(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{
		{Attributes: map[string]int{gltf.POSITION: pos}},
		{Attributes: map[string]int{gltf.POSITION: pos}, Mode: gltf.PrimitiveLines},
	}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0), Rotation: [4]float64{0, 0, 0, 1}, Scale: [3]float64{1, 1, 1}, Matrix: identity16}}
	doc.Scenes[0].Nodes = []int{0}

	scene, err := DecodeGLB(encodeGLB(t, doc))
	if err != nil {
		t.Fatalf("DecodeGLB: %v", err)
	}
	prims := scene.Meshes[0].Primitives
	if len(prims) != 1 {
		t.Fatalf("primitives = %d, want lines skipped", len(prims))
	}
	if prims[0].Material != -1 {
		t.Errorf("material = %d, want -1", prims[0].Material)
	}
	if got := scene.MaterialAt(prims[0].Material); got.Name != "default" {
		t.Errorf("MaterialAt(-1) = %q, want default", got.Name)
	}
	m := prims[0].Mesh
	if len(m.Faces) != 1 {
		t.Fatalf("faces = %d, want 1", len(m.Faces))
	}
	// counter-clockwise in the file, so the normal faces +z
	if got := m.Vertices[0].Normal; got != math3d.V3(0, 0, 1) {
		t.Errorf("generated normal = %v, want (0, 0, 1)", got)
	}
}

func TestDecodeGLBAnimationAndSkin(t *testing.T) {
	doc := triangleDoc()
	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 0.5, 2})
	values := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}})
	doc.Animations = []*gltf.Animation{{
		Name: "wobble",
		Samplers: []*gltf.AnimationSampler{
			{Input: times, Output: values, Interpolation: gltf.InterpolationStep},
		},
		Channels: []*gltf.AnimationChannel{
			{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation}},
		},
	}}
	ibm := modeler.WriteAccessor(doc, gltf.TargetNone, [][4][4]float32{
		{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {-2, 0, 0, 1}},
	})
	doc.Skins = []*gltf.Skin{{Name: "rig", Joints: []int{0}, InverseBindMatrices: gltf.Index(ibm)}}

	scene, err := DecodeGLB(encodeGLB(t, doc))
	if err != nil {
		t.Fatalf("DecodeGLB: %v", err)
	}

	if len(scene.Animations) != 1 {
		t.Fatalf("animations = %d, want 1", len(scene.Animations))
	}
	clip := scene.Animations[0]
	if clip.Name != "wobble" || clip.Duration != 2 {
		t.Errorf("clip = %q duration %v, want wobble 2", clip.Name, clip.Duration)
	}
	ch := clip.Channels[0]
	if ch.Path != PathTranslation || ch.Interp != InterpStep || ch.Node != 0 {
		t.Errorf("channel = %+v", ch)
	}
	if ch.Values[2] != [4]float64{1, 1, 0, 0} {
		t.Errorf("value[2] = %v, want (1, 1, 0, 0)", ch.Values[2])
	}

	if len(scene.Skins) != 1 {
		t.Fatalf("skins = %d, want 1", len(scene.Skins))
	}
	inv := scene.Skins[0].InverseBind[0]
	if got := inv.Translation(); got != math3d.V3(-2, 0, 0) {
		t.Errorf("inverse bind translation = %v, want (-2, 0, 0)", got)
	}
}

func TestDecodeGLBMalformed(t *testing.T) {
	valid := encodeGLB(t, triangleDoc())

	outOfRange := gltf.NewDocument()
	pos := modeler.WritePosition(outOfRange, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(outOfRange, []uint16{0, 1, 7})
	outOfRange.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{
		{Attributes: map[string]int{gltf.POSITION: pos}, Indices: gltf.Index(idx)},
	}}}

	badRoots := triangleDoc()
	badRoots.Scenes[0].Nodes = []int{5}

	cycle := triangleDoc()
	cycle.Nodes = append(cycle.Nodes, &gltf.Node{Name: "loop", Children: []int{0}})
	cycle.Nodes[0].Children = []int{1}
	cycle.Scenes[0].Nodes = []int{0}

	childRoot := triangleDoc()
	childRoot.Nodes = append(childRoot.Nodes, &gltf.Node{Name: "jaw", Children: []int{0}})
	childRoot.Scenes[0].Nodes = []int{0}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"json gltf", []byte(`{"asset":{"version":"2.0"}}`)},
		{"truncated", valid[:len(valid)/2]},
		{"index out of range", encodeGLB(t, outOfRange)},
		{"scene root out of range", encodeGLB(t, badRoots)},
		{"hierarchy cycle", encodeGLB(t, cycle)},
		{"root with parent", encodeGLB(t, childRoot)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scene, err := DecodeGLB(tc.data)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("DecodeGLB error = %v, want ErrMalformed", err)
			}
			if scene != nil {
				t.Error("DecodeGLB returned a scene with an error")
			}
		})
	}
}

func TestWorldTransforms(t *testing.T) {
	s := &Scene{
		Nodes: []Node{
			{Parent: -1, Children: []int{1}, Translation: math3d.V3(1, 0, 0), Rotation: math3d.QuatIdentity(), Scale: math3d.V3(2, 2, 2), Mesh: -1},
			{Parent: 0, Translation: math3d.V3(0, 1, 0), Rotation: math3d.QuatAxisAngle(math3d.Up(), math.Pi/2), Scale: math3d.One3(), Mesh: -1},
		},
		Roots: []int{0},
	}
	world := s.WorldTransforms(math3d.Translate(math3d.V3(0, 0, 5)))

	tests := []struct {
		name string
		node int
		p    math3d.Vec3
		want math3d.Vec3
	}{
		{"root origin", 0, math3d.Zero3(), math3d.V3(1, 0, 5)},
		{"child origin", 1, math3d.Zero3(), math3d.V3(1, 2, 5)},
		{"child rotated x", 1, math3d.V3(1, 0, 0), math3d.V3(1, 2, 3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := world[tc.node].MulVec3(tc.p)
			if got.Sub(tc.want).Len() > 1e-9 {
				t.Errorf("world[%d] * %v = %v, want %v", tc.node, tc.p, got, tc.want)
			}
		})
	}
}

func TestMeshClone(t *testing.T) {
	m := NewMesh("a")
	m.Vertices = []MeshVertex{{Position: math3d.V3(1, 2, 3)}}
	m.Faces = []Face{{V: [3]int{0, 0, 0}}}

	c := m.Clone()
	c.Vertices[0].Position = math3d.Zero3()
	c.Faces[0].V[1] = 9

	if m.Vertices[0].Position != math3d.V3(1, 2, 3) || m.Faces[0].V[1] != 0 {
		t.Error("Clone shares storage with the original")
	}
}

func BenchmarkDecodeGLB(b *testing.B) {
	data := encodeGLB(b, triangleDoc())
	for b.Loop() {
		if _, err := DecodeGLB(data); err != nil {
			b.Fatal(err)
		}
	}
}
