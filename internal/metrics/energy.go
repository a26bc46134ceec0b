package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
)

// TotalEnergy is kinetic plus gravitational potential energy of the body
// set, with potential measured against the origin.
func TotalEnergy(masses []float64, gravity mgl64.Vec3, positions, velocities []mgl64.Vec3) float64 {
	e := 0.0
	for i, m := range masses {
		if i >= len(positions) || i >= len(velocities) {
			break
		}
		v := velocities[i]
		e += 0.5*m*v.Dot(v) - m*gravity.Dot(positions[i])
	}
	return e
}

// Energy reports the total energy of the most recent tick.
type Energy struct {
	name    string
	masses  []float64
	gravity mgl64.Vec3
	samples int
	current float64
}

func NewEnergy(masses []float64, gravity mgl64.Vec3) *Energy {
	return &Energy{
		name:    "energy",
		masses:  masses,
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(t dynamo.Tick) {
	e.current = TotalEnergy(e.masses, e.gravity, t.Positions, t.Velocities)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.current
}

func (e *Energy) Reset() {
	e.current = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// energy. Inelastic contacts make it grow; it is a sanity signal, not a
// conservation check.
type EnergyDrift struct {
	name     string
	energy   *Energy
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(masses []float64, gravity mgl64.Vec3) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		energy: NewEnergy(masses, gravity),
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(t dynamo.Tick) {
	e.energy.Observe(t)
	energy := e.energy.Value()

	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.energy.Reset()
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
