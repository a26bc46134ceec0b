package sim

import (
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/physics"
)

// WorldConfig describes everything around the bodies. Gravity must carry one
// component per dimension.
type WorldConfig struct {
	Dim     int
	Gravity []float64
	Dt      float64
	// Ground defaults to physics.DefaultGround when nil.
	Ground *physics.GroundSpec
}

func DefaultWorldConfig(dim int) WorldConfig {
	g := []float64{0, -9.81}
	if dim == 3 {
		g = append(g, 0)
	}
	return WorldConfig{Dim: dim, Gravity: g, Dt: 1.0 / 60.0}
}

type BodyConfig struct {
	Radius      float64
	Density     float64
	Restitution float64
	Position    []float64
	Velocity    []float64
}

type Metric interface {
	Name() string
	Observe(t dynamo.Tick)
	Value() float64
	Reset()
}

// Stepper is what the pipeline producer drives.
type Stepper interface {
	Tick() dynamo.Tick
}

type Result struct {
	Steps      uint64
	TotalCost  float64
	MaxCost    float64
	Final      dynamo.State
	Metrics    map[string]float64
	Degenerate bool
}
