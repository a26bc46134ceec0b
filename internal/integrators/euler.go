package integrators

import "github.com/go-gl/mathgl/mgl64"

// Euler is the explicit method: position moves with the old velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	return pos.Add(vel.Mul(dt)), vel.Add(acc.Mul(dt))
}

// SemiImplicit updates velocity first and moves with the new velocity.
// This is the scheme most real-time engines use.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Name() string { return "semi_implicit" }

func (s *SemiImplicit) Step(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	v := vel.Add(acc.Mul(dt))
	return pos.Add(v.Mul(dt)), v
}
