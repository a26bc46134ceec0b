package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
	"github.com/san-kum/tickstream/internal/integrators"
)

var ErrGroundExists = errors.New("physics: ground already added")

type Options struct {
	Integrator integrators.Stepper
	// Iterations is the number of sequential-impulse passes per step.
	Iterations int
	CCD        bool
	Combine    CombineRule
	// RestitutionThreshold is the approach speed below which contacts do
	// not bounce, so resting bodies settle instead of jittering.
	RestitutionThreshold float64
	Slop                 float64
	Baumgarte            float64
}

func DefaultOptions() Options {
	return Options{
		Integrator:           integrators.NewSemiImplicit(),
		Iterations:           4,
		CCD:                  true,
		Combine:              CombineAverage,
		RestitutionThreshold: 1.0,
		Slop:                 0.005,
		Baumgarte:            0.2,
	}
}

type body struct {
	spec    BodySpec
	invMass float64
	pos     mgl64.Vec3
	vel     mgl64.Vec3
}

// World is the native engine. It is not safe for concurrent use.
type World struct {
	dim     int
	opts    Options
	gravity mgl64.Vec3
	ground  *GroundSpec
	bodies  []body

	prevPos  []mgl64.Vec3
	prevVel  []mgl64.Vec3
	contacts []contact

	steps      uint64
	degenerate uint64
}

func NewWorld(dim int, opts Options) (*World, error) {
	if err := dynamo.ValidDim(dim); err != nil {
		return nil, err
	}
	if opts.Integrator == nil {
		opts.Integrator = integrators.NewSemiImplicit()
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}
	if opts.Baumgarte < 0 || opts.Baumgarte > 1 {
		return nil, fmt.Errorf("baumgarte factor must be in [0,1], got %v", opts.Baumgarte)
	}
	return &World{dim: dim, opts: opts}, nil
}

func (w *World) Name() string { return "native" }
func (w *World) Dim() int     { return w.dim }

func (w *World) SetGravity(g mgl64.Vec3) {
	if w.dim == 2 {
		g[2] = 0
	}
	w.gravity = g
}

func (w *World) AddGround(g GroundSpec) error {
	if w.ground != nil {
		return ErrGroundExists
	}
	if err := g.Validate(w.dim); err != nil {
		return err
	}
	if w.dim == 2 {
		g.HalfExtents[2] = 0
	}
	w.ground = &g
	return nil
}

func (w *World) AddBody(b BodySpec) (Handle, error) {
	if err := b.Validate(w.dim); err != nil {
		return -1, err
	}
	w.bodies = append(w.bodies, body{
		spec:    b,
		invMass: 1 / b.Mass(w.dim),
		pos:     b.Position,
		vel:     b.Velocity,
	})
	return Handle(len(w.bodies) - 1), nil
}

func (w *World) Position(h Handle) mgl64.Vec3 { return w.bodies[h].pos }
func (w *World) Velocity(h Handle) mgl64.Vec3 { return w.bodies[h].vel }
func (w *World) Mass(h Handle) float64        { return 1 / w.bodies[h].invMass }

// Steps is the number of completed Step calls.
func (w *World) Steps() uint64 { return w.steps }

// Degenerate counts bodies restored after a non-finite step.
func (w *World) Degenerate() uint64 { return w.degenerate }

// Step advances the world by dt. Non-positive or non-finite dt is a no-op.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}

	n := len(w.bodies)
	if cap(w.prevPos) < n {
		w.prevPos = make([]mgl64.Vec3, n)
		w.prevVel = make([]mgl64.Vec3, n)
	}
	w.prevPos, w.prevVel = w.prevPos[:n], w.prevVel[:n]

	for i := range w.bodies {
		b := &w.bodies[i]
		w.prevPos[i], w.prevVel[i] = b.pos, b.vel
		b.pos, b.vel = w.opts.Integrator.Step(b.pos, b.vel, w.gravity, dt)
		w.planar(b)
	}

	if w.opts.CCD {
		w.sweep()
	}

	w.findContacts()
	for it := 0; it < w.opts.Iterations; it++ {
		w.solveVelocities()
	}
	w.correctPositions()
	w.recover()
	w.steps++
}

func (w *World) planar(b *body) {
	if w.dim == 2 {
		b.pos[2] = 0
		b.vel[2] = 0
	}
}

func (w *World) recover() {
	for i := range w.bodies {
		b := &w.bodies[i]
		if dynamo.VecIsValid(b.pos) && dynamo.VecIsValid(b.vel) {
			continue
		}
		b.pos = w.prevPos[i]
		b.vel = mgl64.Vec3{}
		w.degenerate++
	}
}

func (w *World) groundBounds(radius float64) (lo, hi mgl64.Vec3) {
	c := w.ground.center()
	h := w.ground.HalfExtents
	r := mgl64.Vec3{radius, radius, radius}
	if w.dim == 2 {
		r[2] = 0
	}
	return c.Sub(h).Sub(r), c.Add(h).Add(r)
}
