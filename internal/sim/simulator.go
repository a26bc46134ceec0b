package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/physics"
)

type Simulator struct {
	engine  physics.Engine
	dim     int
	dt      float64
	handles []physics.Handle
	masses  []float64
	gravity mgl64.Vec3
	steps   uint64
	metrics []Metric
}

func New(engine physics.Engine, cfg WorldConfig, bodies ...BodyConfig) (*Simulator, error) {
	if cfg.Dim == 0 {
		cfg.Dim = engine.Dim()
	}
	if err := dynamo.ValidDim(cfg.Dim); err != nil {
		return nil, err
	}
	if cfg.Dim != engine.Dim() {
		return nil, fmt.Errorf("%w: %dD scene on %dD engine %s", dynamo.ErrDimensionMismatch, cfg.Dim, engine.Dim(), engine.Name())
	}
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return nil, fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("%w: scene has no bodies", dynamo.ErrInvalidGeometry)
	}

	gravity, err := dynamo.VecFromSlice(cfg.Gravity, cfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("gravity: %w", err)
	}
	engine.SetGravity(gravity)

	ground := physics.DefaultGround(cfg.Dim)
	if cfg.Ground != nil {
		ground = *cfg.Ground
	}
	if err := engine.AddGround(ground); err != nil {
		return nil, fmt.Errorf("ground: %w", err)
	}

	s := &Simulator{engine: engine, dim: cfg.Dim, dt: cfg.Dt, gravity: gravity}
	for i, b := range bodies {
		spec, err := b.spec(cfg.Dim)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		h, err := engine.AddBody(spec)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		s.handles = append(s.handles, h)
		s.masses = append(s.masses, spec.Mass(cfg.Dim))
	}
	return s, nil
}

// MustNew is New for scenes known to be valid.
func MustNew(engine physics.Engine, cfg WorldConfig, bodies ...BodyConfig) *Simulator {
	s, err := New(engine, cfg, bodies...)
	if err != nil {
		panic(err)
	}
	return s
}

func (b BodyConfig) spec(dim int) (physics.BodySpec, error) {
	pos, err := dynamo.VecFromSlice(b.Position, dim)
	if err != nil {
		return physics.BodySpec{}, fmt.Errorf("position: %w", err)
	}
	vel := mgl64.Vec3{}
	if b.Velocity != nil {
		if vel, err = dynamo.VecFromSlice(b.Velocity, dim); err != nil {
			return physics.BodySpec{}, fmt.Errorf("velocity: %w", err)
		}
	}
	spec := physics.BodySpec{
		Radius:      b.Radius,
		Density:     b.Density,
		Restitution: b.Restitution,
		Position:    pos,
		Velocity:    vel,
	}
	return spec, spec.Validate(dim)
}

func (s *Simulator) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// Step advances exactly one fixed timestep and returns the post-step
// positions in construction order plus the wall-clock cost of the step.
func (s *Simulator) Step() ([]mgl64.Vec3, time.Duration) {
	start := time.Now()
	s.engine.Step(s.dt)
	positions := s.Positions()
	cost := time.Since(start)
	s.steps++
	return positions, cost
}

// Tick is Step packaged with velocities, observed by registered metrics.
func (s *Simulator) Tick() dynamo.Tick {
	positions, cost := s.Step()
	t := dynamo.Tick{
		Positions:  positions,
		Velocities: s.Velocities(),
		Dim:        s.dim,
		Cost:       cost,
	}
	for _, m := range s.metrics {
		m.Observe(t)
	}
	return t
}

// Run steps until n ticks are done or ctx ends.
func (s *Simulator) Run(ctx context.Context, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("step count must be positive, got %d", n)
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	res := &Result{Metrics: make(map[string]float64)}
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		t := s.Tick()
		cost := float64(t.CostMicros())
		res.Steps++
		res.TotalCost += cost
		res.MaxCost = math.Max(res.MaxCost, cost)
	}

	res.Final = Flatten(nil, s.Positions(), s.dim)
	res.Degenerate = !res.Final.IsValid()
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

func (s *Simulator) Positions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(s.handles))
	for i, h := range s.handles {
		out[i] = s.engine.Position(h)
	}
	return out
}

func (s *Simulator) Velocities() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(s.handles))
	for i, h := range s.handles {
		out[i] = s.engine.Velocity(h)
	}
	return out
}

func (s *Simulator) Dim() int               { return s.dim }
func (s *Simulator) Bodies() int            { return len(s.handles) }
func (s *Simulator) Steps() uint64          { return s.steps }
func (s *Simulator) Dt() float64            { return s.dt }
func (s *Simulator) Gravity() mgl64.Vec3    { return s.gravity }
func (s *Simulator) Engine() physics.Engine { return s.engine }

// Masses are indexed like Positions.
func (s *Simulator) Masses() []float64 {
	out := make([]float64, len(s.masses))
	copy(out, s.masses)
	return out
}

// Flatten appends dim components of each position to dst, in order.
func Flatten(dst dynamo.State, positions []mgl64.Vec3, dim int) dynamo.State {
	return dynamo.Tick{Positions: positions, Dim: dim}.Flatten(dst)
}
