// Package integrators advances body kinematics over one fixed timestep.
//
// Acceleration is constant within a step (gravity is the only body force),
// so the steppers differ only in how position and velocity are ordered.
package integrators

import "github.com/go-gl/mathgl/mgl64"

// Stepper integrates one body over dt under a constant acceleration.
type Stepper interface {
	Name() string
	Step(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3)
}
