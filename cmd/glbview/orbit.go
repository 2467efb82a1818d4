package main

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

const (
	defaultDistance = 3.5
	minDistance     = 1.2
	maxDistance     = 20
	dragGain        = 0.02 // radians of velocity per pixel dragged
)

// axis is a position driven by a velocity that a critically damped spring
// pulls back to zero.
type axis struct {
	pos, vel  float64
	velSpring harmonica.Spring
	velAccel  float64
}

func newAxis(fps int) axis {
	return axis{velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

func (a *axis) update() {
	a.pos += a.vel
	a.vel, a.velAccel = a.velSpring.Update(a.vel, a.velAccel, 0)
}

// Orbit is the camera's yaw, pitch and distance around the model, with
// inertia after a drag.
type Orbit struct {
	fps        int
	yaw, pitch axis

	distance   float64
	distVel    float64
	distTarget float64
	distSpring harmonica.Spring
}

// NewOrbit returns an orbit stepped fps times a second.
func NewOrbit(fps int) *Orbit {
	o := &Orbit{fps: fps}
	o.Reset()
	return o
}

// Reset returns to the default view.
func (o *Orbit) Reset() {
	o.yaw, o.pitch = newAxis(o.fps), newAxis(o.fps)
	o.pitch.pos = 0.2
	o.distance, o.distTarget, o.distVel = defaultDistance, defaultDistance, 0
	o.distSpring = harmonica.NewSpring(harmonica.FPS(o.fps), 6.0, 1.0)
}

// Drag implements app.DragHandler.
func (o *Orbit) Drag(dx, dy float64) {
	o.Impulse(-dx*dragGain, dy*dragGain)
}

// Impulse adds angular velocity.
func (o *Orbit) Impulse(yaw, pitch float64) {
	o.yaw.vel += yaw
	o.pitch.vel += pitch
}

// Zoom moves the distance target by delta, within limits.
func (o *Orbit) Zoom(delta float64) {
	o.distTarget = math.Max(minDistance, math.Min(maxDistance, o.distTarget+delta))
}

// Step advances one frame.
func (o *Orbit) Step() {
	o.yaw.update()
	o.pitch.update()
	o.pitch.pos = math.Max(-1.5, math.Min(1.5, o.pitch.pos))
	o.distance, o.distVel = o.distSpring.Update(o.distance, o.distVel, o.distTarget)
}

// View returns the camera orbit parameters.
func (o *Orbit) View() (yaw, pitch, distance float64) {
	return o.yaw.pos, o.pitch.pos, o.distance
}
