package integrators

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var gravity = mgl64.Vec3{0, -9.81, 0}

func integrate(s Stepper, steps int, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	pos := mgl64.Vec3{0, 10, 0}
	vel := mgl64.Vec3{1, 0, 0}
	for i := 0; i < steps; i++ {
		pos, vel = s.Step(pos, vel, gravity, dt)
	}
	return pos, vel
}

func TestVerletExactUnderConstantAcceleration(t *testing.T) {
	dt := 0.01
	steps := 100
	pos, vel := integrate(NewVerlet(), steps, dt)

	tt := float64(steps) * dt
	expectedY := 10 - 0.5*9.81*tt*tt
	if math.Abs(pos.Y()-expectedY) > 1e-9 {
		t.Errorf("position error too large: got %.9f, expected %.9f", pos.Y(), expectedY)
	}
	if math.Abs(pos.X()-tt) > 1e-9 {
		t.Errorf("x drift: got %.9f, expected %.9f", pos.X(), tt)
	}
	if math.Abs(vel.Y()+9.81*tt) > 1e-9 {
		t.Errorf("velocity error too large: got %.9f", vel.Y())
	}
}

func TestEulerOrdering(t *testing.T) {
	dt := 0.1
	explicitPos, _ := NewEuler().Step(mgl64.Vec3{}, mgl64.Vec3{}, gravity, dt)
	semiPos, semiVel := NewSemiImplicit().Step(mgl64.Vec3{}, mgl64.Vec3{}, gravity, dt)

	if explicitPos.Y() != 0 {
		t.Errorf("explicit euler should move with the old velocity, got y=%f", explicitPos.Y())
	}
	if math.Abs(semiPos.Y()+9.81*dt*dt) > 1e-12 {
		t.Errorf("semi-implicit euler should move with the new velocity, got y=%f", semiPos.Y())
	}
	if math.Abs(semiVel.Y()+9.81*dt) > 1e-12 {
		t.Errorf("semi-implicit velocity wrong: %f", semiVel.Y())
	}
}

func TestAllSteppersConvergeTogether(t *testing.T) {
	dt := 1e-4
	steps := 10000
	ref, _ := integrate(NewVerlet(), steps, dt)

	for _, s := range []Stepper{NewEuler(), NewSemiImplicit()} {
		pos, _ := integrate(s, steps, dt)
		if pos.Sub(ref).Len() > 1e-2 {
			t.Errorf("%s diverged from verlet: %v vs %v", s.Name(), pos, ref)
		}
	}
}
