package integrators

import "github.com/go-gl/mathgl/mgl64"

// Verlet is velocity Verlet; exact for constant acceleration.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(pos, vel, acc mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	dt2 := dt * dt
	newPos := pos.Add(vel.Mul(dt)).Add(acc.Mul(0.5 * dt2))
	// acceleration at t+dt equals acceleration at t, so the half-step average
	// collapses to a single term
	newVel := vel.Add(acc.Mul(dt))
	return newPos, newVel
}
