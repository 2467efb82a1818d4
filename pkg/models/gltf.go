package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/glbview/pkg/math3d"
	_ "golang.org/x/image/webp" // EXT_texture_webp payloads
)

// ErrMalformed is wrapped by every decode failure caused by the input bytes.
var ErrMalformed = errors.New("malformed glTF")

// glbMagic is the binary glTF container header.
var glbMagic = []byte("glTF")

// GLTFLoader decodes GLB containers into a Scene.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// DecodeGLB decodes a binary glTF blob with the default loader.
func DecodeGLB(data []byte) (*Scene, error) {
	return NewGLTFLoader().Decode(data)
}

// LoadGLB reads and decodes a .glb file.
func LoadGLB(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glb: %w", err)
	}
	return DecodeGLB(data)
}

// Decode parses a binary glTF blob.
func (l *GLTFLoader) Decode(data []byte) (*Scene, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], glbMagic) {
		return nil, fmt.Errorf("%w: not a binary glTF container", ErrMalformed)
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}

	scene := &Scene{}
	if doc.Asset.Generator != "" {
		scene.Name = doc.Asset.Generator
	}

	for i, m := range doc.Meshes {
		group, err := l.processMesh(doc, m)
		if err != nil {
			return nil, fmt.Errorf("%w: mesh %d %q: %v", ErrMalformed, i, m.Name, err)
		}
		scene.Meshes = append(scene.Meshes, group)
	}

	for _, m := range doc.Materials {
		scene.Materials = append(scene.Materials, convertMaterial(m))
	}

	scene.Textures = decodeTextures(doc)

	if err := buildNodes(doc, scene); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	for i, s := range doc.Skins {
		skin, err := readSkin(doc, s)
		if err != nil {
			return nil, fmt.Errorf("%w: skin %d: %v", ErrMalformed, i, err)
		}
		scene.Skins = append(scene.Skins, skin)
	}

	for i, a := range doc.Animations {
		clip, err := readAnimation(doc, a, len(scene.Nodes))
		if err != nil {
			return nil, fmt.Errorf("%w: animation %d %q: %v", ErrMalformed, i, a.Name, err)
		}
		scene.Animations = append(scene.Animations, clip)
	}

	return scene, nil
}

// processMesh extracts the triangle primitives of a glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh) (MeshGroup, error) {
	group := MeshGroup{Name: m.Name}

	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		mesh, err := l.readPrimitive(doc, prim)
		if err != nil {
			return group, fmt.Errorf("primitive %d: %w", pi, err)
		}
		if mesh == nil {
			continue
		}
		mesh.Name = fmt.Sprintf("%s#%d", m.Name, pi)

		material := -1
		if prim.Material != nil {
			material = *prim.Material
		}
		group.Primitives = append(group.Primitives, Primitive{Mesh: mesh, Material: material})
	}

	return group, nil
}

func (l *GLTFLoader) readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	positions, err := modeler.ReadPosition(doc, accessor(doc, posIdx), nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, accessor(doc, idx), nil); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, accessor(doc, idx), nil); err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
	}

	var joints [][4]uint16
	var weights [][4]float32
	jIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
	wIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	if hasJoints && hasWeights {
		if joints, err = modeler.ReadJoints(doc, accessor(doc, jIdx), nil); err != nil {
			return nil, fmt.Errorf("read joints: %w", err)
		}
		if weights, err = modeler.ReadWeights(doc, accessor(doc, wIdx), nil); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}

	mesh := NewMesh("")
	mesh.Vertices = make([]MeshVertex, len(positions))
	for i, p := range positions {
		v := MeshVertex{Position: math3d.V3FromArray(p)}
		if i < len(normals) {
			v.Normal = math3d.V3FromArray(normals[i])
		}
		if i < len(uvs) {
			// glTF UVs are top-left origin, the rasterizer samples bottom-left
			v.UV = math3d.V2(float64(uvs[i][0]), 1.0-float64(uvs[i][1]))
		}
		if i < len(joints) && i < len(weights) {
			for k := range 4 {
				v.Joints[k] = int(joints[i][k])
				v.Weights[k] = float64(weights[i][k])
			}
		}
		mesh.Vertices[i] = v
	}
	mesh.Skinned = len(joints) >= len(positions) && len(weights) >= len(positions) && len(positions) > 0

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, accessor(doc, *prim.Indices), nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// glTF front faces are CCW; the rasterizer's Y-flipped screen space
	// makes them CW, so the winding is reversed here.
	for i := 0; i+2 < len(indices); i += 3 {
		f := Face{V: [3]int{int(indices[i]), int(indices[i+2]), int(indices[i+1])}}
		for _, vi := range f.V {
			if vi >= len(mesh.Vertices) {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", vi, len(mesh.Vertices))
			}
		}
		mesh.Faces = append(mesh.Faces, f)
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return mesh, nil
}

func accessor(doc *gltf.Document, i int) *gltf.Accessor {
	if i < 0 || i >= len(doc.Accessors) {
		return nil
	}
	return doc.Accessors[i]
}

func convertMaterial(m *gltf.Material) Material {
	out := DefaultMaterial()
	out.Name = m.Name
	out.DoubleSided = m.DoubleSided
	out.Emissive = m.EmissiveFactor

	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		return out
	}
	if pbr.BaseColorFactor != nil {
		out.BaseColor = *pbr.BaseColorFactor
	}
	if pbr.MetallicFactor != nil {
		out.Metallic = *pbr.MetallicFactor
	}
	if pbr.RoughnessFactor != nil {
		out.Roughness = *pbr.RoughnessFactor
	}
	if pbr.BaseColorTexture != nil {
		out.BaseTexture = pbr.BaseColorTexture.Index
	}
	return out
}

// decodeTextures decodes the embedded image behind every texture. Failures
// leave a nil slot so the material falls back to its base color.
func decodeTextures(doc *gltf.Document) []image.Image {
	images := make([]image.Image, len(doc.Images))
	for i, img := range doc.Images {
		if img.BufferView == nil || *img.BufferView >= len(doc.BufferViews) {
			continue
		}
		bv := doc.BufferViews[*img.BufferView]
		if bv.Buffer >= len(doc.Buffers) {
			continue
		}
		data := doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if end > len(data) {
			continue
		}
		decoded, _, err := image.Decode(bytes.NewReader(data[bv.ByteOffset:end]))
		if err == nil {
			images[i] = decoded
		}
	}

	textures := make([]image.Image, len(doc.Textures))
	for i, t := range doc.Textures {
		if t.Source != nil && *t.Source < len(images) {
			textures[i] = images[*t.Source]
		}
	}
	return textures
}

func buildNodes(doc *gltf.Document, scene *Scene) error {
	scene.Nodes = make([]Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		node := Node{
			Name:        n.Name,
			Parent:      -1,
			Children:    append([]int(nil), n.Children...),
			Translation: math3d.V3FromArray(n.Translation),
			Rotation:    math3d.QuatFromArray(n.Rotation).Normalize(),
			Scale:       math3d.V3FromArray(n.Scale),
			Mesh:        -1,
			Skin:        -1,
		}
		if node.Scale == math3d.Zero3() {
			node.Scale = math3d.One3()
		}
		if m := math3d.Mat4FromArray(n.Matrix); m != math3d.Identity() {
			node.Matrix, node.HasMatrix = m, true
		}
		if n.Mesh != nil {
			if *n.Mesh >= len(scene.Meshes) {
				return fmt.Errorf("node %d: mesh %d out of range", i, *n.Mesh)
			}
			node.Mesh = *n.Mesh
		}
		if n.Skin != nil {
			if *n.Skin >= len(doc.Skins) {
				return fmt.Errorf("node %d: skin %d out of range", i, *n.Skin)
			}
			node.Skin = *n.Skin
		}
		scene.Nodes[i] = node
	}

	for i, n := range scene.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(scene.Nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if scene.Nodes[c].Parent >= 0 {
				return fmt.Errorf("node %d has two parents", c)
			}
			scene.Nodes[c].Parent = i
		}
	}

	if err := checkAcyclic(scene.Nodes); err != nil {
		return err
	}

	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, r := range doc.Scenes[*doc.Scene].Nodes {
			if r < 0 || r >= len(scene.Nodes) {
				return fmt.Errorf("scene root %d out of range", r)
			}
			if scene.Nodes[r].Parent >= 0 {
				return fmt.Errorf("scene root %d has parent %d", r, scene.Nodes[r].Parent)
			}
			scene.Roots = append(scene.Roots, r)
		}
		return nil
	}
	for i, n := range scene.Nodes {
		if n.Parent < 0 {
			scene.Roots = append(scene.Roots, i)
		}
	}
	return nil
}

// checkAcyclic follows every parent chain. Each node has at most one
// parent, so a chain longer than the node count is a cycle.
func checkAcyclic(nodes []Node) error {
	for i := range nodes {
		p := nodes[i].Parent
		for steps := 0; p >= 0; steps++ {
			if steps >= len(nodes) {
				return fmt.Errorf("node %d: hierarchy cycle", i)
			}
			p = nodes[p].Parent
		}
	}
	return nil
}

func readSkin(doc *gltf.Document, s *gltf.Skin) (Skin, error) {
	skin := Skin{
		Name:     s.Name,
		Joints:   append([]int(nil), s.Joints...),
		Skeleton: -1,
	}
	if s.Skeleton != nil {
		skin.Skeleton = *s.Skeleton
	}

	skin.InverseBind = make([]math3d.Mat4, len(s.Joints))
	for i := range skin.InverseBind {
		skin.InverseBind[i] = math3d.Identity()
	}
	if s.InverseBindMatrices == nil {
		return skin, nil
	}

	data, err := modeler.ReadAccessor(doc, accessor(doc, *s.InverseBindMatrices), nil)
	if err != nil {
		return skin, fmt.Errorf("read inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return skin, fmt.Errorf("inverse bind matrices: unexpected type %T", data)
	}
	for i := range min(len(mats), len(skin.InverseBind)) {
		var m math3d.Mat4
		for col := range 4 {
			for row := range 4 {
				m[col*4+row] = float64(mats[i][col][row])
			}
		}
		skin.InverseBind[i] = m
	}
	return skin, nil
}

func readAnimation(doc *gltf.Document, a *gltf.Animation, nodeCount int) (Animation, error) {
	clip := Animation{Name: a.Name}

	for ci, ch := range a.Channels {
		if ch.Target.Node == nil {
			continue
		}
		if *ch.Target.Node >= nodeCount {
			return clip, fmt.Errorf("channel %d: node %d out of range", ci, *ch.Target.Node)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
			return clip, fmt.Errorf("channel %d: sampler %d out of range", ci, ch.Sampler)
		}
		sampler := a.Samplers[ch.Sampler]

		out := Channel{Node: *ch.Target.Node}
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			out.Path = PathTranslation
		case gltf.TRSRotation:
			out.Path = PathRotation
		case gltf.TRSScale:
			out.Path = PathScale
		default:
			// morph target weights are not rendered
			continue
		}
		switch sampler.Interpolation {
		case gltf.InterpolationStep:
			out.Interp = InterpStep
		case gltf.InterpolationCubicSpline:
			out.Interp = InterpCubicSpline
		default:
			out.Interp = InterpLinear
		}

		times, err := readFloats(doc, sampler.Input)
		if err != nil {
			return clip, fmt.Errorf("channel %d input: %w", ci, err)
		}
		values, err := readKeyValues(doc, sampler.Output)
		if err != nil {
			return clip, fmt.Errorf("channel %d output: %w", ci, err)
		}
		perKey := 1
		if out.Interp == InterpCubicSpline {
			perKey = 3
		}
		if len(values) < len(times)*perKey {
			return clip, fmt.Errorf("channel %d: %d values for %d keyframes", ci, len(values), len(times))
		}
		out.Times, out.Values = times, values
		if n := len(times); n > 0 && times[n-1] > clip.Duration {
			clip.Duration = times[n-1]
		}
		clip.Channels = append(clip.Channels, out)
	}
	return clip, nil
}

func readFloats(doc *gltf.Document, idx int) ([]float64, error) {
	data, err := modeler.ReadAccessor(doc, accessor(doc, idx), nil)
	if err != nil {
		return nil, err
	}
	f, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("expected float scalars, got %T", data)
	}
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = float64(v)
	}
	return out, nil
}

func readKeyValues(doc *gltf.Document, idx int) ([][4]float64, error) {
	data, err := modeler.ReadAccessor(doc, accessor(doc, idx), nil)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][3]float32:
		out := make([][4]float64, len(v))
		for i, e := range v {
			out[i] = [4]float64{float64(e[0]), float64(e[1]), float64(e[2]), 0}
		}
		return out, nil
	case [][4]float32:
		out := make([][4]float64, len(v))
		for i, e := range v {
			out[i] = [4]float64{float64(e[0]), float64(e[1]), float64(e[2]), float64(e[3])}
		}
		return out, nil
	case [][4]int16:
		// normalized rotations
		out := make([][4]float64, len(v))
		for i, e := range v {
			for k := range 4 {
				out[i][k] = max(float64(e[k])/32767.0, -1)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported keyframe type %T", data)
	}
}
