package models

// Path is the node property an animation channel drives.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
	PathWeights
)

// Interpolation is the keyframe interpolation mode.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
	InterpCubicSpline
)

// Animation is one glTF animation clip.
type Animation struct {
	Name     string
	Channels []Channel
	Duration float64 // seconds, the last keyframe time across channels
}

// Channel animates one property of one node.
//
// Values holds one entry per keyframe for linear and step interpolation,
// and three (in-tangent, value, out-tangent) for cubic spline.
// Translation and scale use the first three components.
type Channel struct {
	Node   int
	Path   Path
	Interp Interpolation
	Times  []float64
	Values [][4]float64
}
