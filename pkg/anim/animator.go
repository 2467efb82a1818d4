// Package anim samples glTF animation clips onto a scene's node hierarchy
// and derives the joint matrices used for linear blend skinning.
package anim

import (
	"math"
	"sort"

	"github.com/taigrr/glbview/pkg/math3d"
	"github.com/taigrr/glbview/pkg/models"
)

type pose struct {
	t         math3d.Vec3
	r         math3d.Quat
	s         math3d.Vec3
	matrix    math3d.Mat4
	hasMatrix bool
}

func (p *pose) local() math3d.Mat4 {
	if p.hasMatrix {
		return p.matrix
	}
	return math3d.TRS(p.t, p.r, p.s)
}

// Animator holds the animated pose of one scene. It is owned by the
// goroutine that renders and is not safe for concurrent use.
type Animator struct {
	scene  *models.Scene
	rest   []pose
	poses  []pose
	root   math3d.Mat4
	world  []math3d.Mat4
	joints [][]math3d.Mat4
	dirty  bool
}

// New creates an animator posed at the scene's rest transforms.
func New(scene *models.Scene) *Animator {
	a := &Animator{
		scene:  scene,
		root:   math3d.Identity(),
		world:  make([]math3d.Mat4, len(scene.Nodes)),
		joints: make([][]math3d.Mat4, len(scene.Skins)),
		dirty:  true,
	}
	a.rest = make([]pose, len(scene.Nodes))
	for i, n := range scene.Nodes {
		a.rest[i] = pose{t: n.Translation, r: n.Rotation, s: n.Scale, matrix: n.Matrix, hasMatrix: n.HasMatrix}
	}
	a.poses = append([]pose(nil), a.rest...)
	for i, s := range scene.Skins {
		a.joints[i] = make([]math3d.Mat4, len(s.Joints))
	}
	a.UpdateBoneMatrices()
	return a
}

// AnimationCount returns the number of clips in the scene.
func (a *Animator) AnimationCount() int {
	return len(a.scene.Animations)
}

// AnimationDuration returns clip i's length in seconds.
func (a *Animator) AnimationDuration(i int) float64 {
	if i < 0 || i >= len(a.scene.Animations) {
		return 0
	}
	return a.scene.Animations[i].Duration
}

// AnimationName returns clip i's name.
func (a *Animator) AnimationName(i int) string {
	if i < 0 || i >= len(a.scene.Animations) {
		return ""
	}
	return a.scene.Animations[i].Name
}

// ApplyAnimation poses every node clip i drives at t seconds. Time wraps
// at the clip duration so a clock that keeps running loops the clip.
// Nodes the clip does not touch keep their current pose.
func (a *Animator) ApplyAnimation(i int, t float64) {
	if i < 0 || i >= len(a.scene.Animations) {
		return
	}
	clip := &a.scene.Animations[i]
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	if clip.Duration > 0 {
		t = math.Mod(t, clip.Duration)
	}

	for ci := range clip.Channels {
		ch := &clip.Channels[ci]
		if len(ch.Times) == 0 {
			continue
		}
		p := &a.poses[ch.Node]
		v := sample(ch, t)
		switch ch.Path {
		case models.PathTranslation:
			p.t = math3d.V3(v[0], v[1], v[2])
		case models.PathRotation:
			p.r = math3d.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
		case models.PathScale:
			p.s = math3d.V3(v[0], v[1], v[2])
		default:
			continue
		}
		p.hasMatrix = false
	}
	a.dirty = true
}

// ResetPose returns every node to its rest transform.
func (a *Animator) ResetPose() {
	copy(a.poses, a.rest)
	a.dirty = true
}

// SetRoot sets the transform applied above every scene root.
func (a *Animator) SetRoot(m math3d.Mat4) {
	a.root = m
	a.dirty = true
}

// Root returns the transform applied above every scene root.
func (a *Animator) Root() math3d.Mat4 {
	return a.root
}

// UpdateBoneMatrices recomputes node world transforms and joint matrices
// from the current pose.
func (a *Animator) UpdateBoneMatrices() {
	var visit func(i int, parent math3d.Mat4)
	visit = func(i int, parent math3d.Mat4) {
		a.world[i] = parent.Mul(a.poses[i].local())
		for _, c := range a.scene.Nodes[i].Children {
			visit(c, a.world[i])
		}
	}
	for _, r := range a.scene.Roots {
		visit(r, a.root)
	}

	// glTF ignores the transform of the skinned node itself; joint
	// matrices map bind-space positions straight to world space.
	for si, skin := range a.scene.Skins {
		for j, node := range skin.Joints {
			if node < 0 || node >= len(a.world) {
				a.joints[si][j] = math3d.Identity()
				continue
			}
			a.joints[si][j] = a.world[node].Mul(skin.InverseBind[j])
		}
	}
	a.dirty = false
}

// WorldTransforms returns the node world matrices of the last update,
// recomputing them first when the pose changed. The slice is reused.
func (a *Animator) WorldTransforms() []math3d.Mat4 {
	if a.dirty {
		a.UpdateBoneMatrices()
	}
	return a.world
}

// JointMatrices returns the skinning matrices for skin i, or nil.
func (a *Animator) JointMatrices(skin int) []math3d.Mat4 {
	if skin < 0 || skin >= len(a.joints) {
		return nil
	}
	if a.dirty {
		a.UpdateBoneMatrices()
	}
	return a.joints[skin]
}

// sample evaluates a channel at t, holding the first and last keys
// outside the keyed range.
func sample(ch *models.Channel, t float64) [4]float64 {
	times := ch.Times
	last := len(times) - 1
	value := func(k int) [4]float64 {
		if ch.Interp == models.InterpCubicSpline {
			return ch.Values[k*3+1]
		}
		return ch.Values[k]
	}
	if t <= times[0] {
		return value(0)
	}
	if t >= times[last] {
		return value(last)
	}

	// first key at or after t
	k1 := sort.SearchFloat64s(times, t)
	if times[k1] == t {
		return value(k1)
	}
	k0 := k1 - 1
	dt := times[k1] - times[k0]
	u := (t - times[k0]) / dt

	switch ch.Interp {
	case models.InterpStep:
		return value(k0)
	case models.InterpCubicSpline:
		p0, m0 := ch.Values[k0*3+1], ch.Values[k0*3+2]
		p1, m1 := ch.Values[k1*3+1], ch.Values[k1*3]
		return hermite(p0, m0, p1, m1, u, dt)
	}

	a, b := value(k0), value(k1)
	if ch.Path == models.PathRotation {
		qa := math3d.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
		qb := math3d.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}
		q := qa.Slerp(qb, u)
		return [4]float64{q.X, q.Y, q.Z, q.W}
	}
	var out [4]float64
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*u
	}
	return out
}

func hermite(p0, m0, p1, m1 [4]float64, u, dt float64) [4]float64 {
	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	var out [4]float64
	for i := range out {
		out[i] = h00*p0[i] + h10*m0[i]*dt + h01*p1[i] + h11*m1[i]*dt
	}
	return out
}
