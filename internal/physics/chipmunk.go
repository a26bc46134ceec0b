package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/san-kum/tickstream/internal/dynamo"
)

// maxSubsteps bounds how finely one Step is split when ccd is on.
const maxSubsteps = 32

// Chipmunk runs 2D scenes on the Chipmunk2D port. Chipmunk multiplies
// elasticities of touching shapes, so the combine rule is fixed, and it
// integrates bodies itself, so Options.Integrator is not used. Chipmunk has
// no swept collision; with ccd set, Step splits dt so no body travels more
// than half its radius per substep.
type Chipmunk struct {
	space  *cp.Space
	bodies []*cp.Body
	radii  []float64
	ground bool
	ccd    bool
}

func NewChipmunk(iterations int, ccd bool) *Chipmunk {
	space := cp.NewSpace()
	if iterations > 0 {
		space.Iterations = uint(iterations)
	}
	return &Chipmunk{space: space, ccd: ccd}
}

func (c *Chipmunk) Name() string { return "chipmunk" }
func (c *Chipmunk) Dim() int     { return 2 }

func (c *Chipmunk) SetGravity(g mgl64.Vec3) {
	c.space.SetGravity(cp.Vector{X: g.X(), Y: g.Y()})
}

func (c *Chipmunk) AddGround(g GroundSpec) error {
	if c.ground {
		return ErrGroundExists
	}
	if err := g.Validate(2); err != nil {
		return err
	}
	hx, hy := g.HalfExtents.X(), g.HalfExtents.Y()
	y := g.Top - hy
	// a segment with radius hy sweeps out the slab with rounded ends
	seg := cp.NewSegment(c.space.StaticBody, cp.Vector{X: -hx, Y: y}, cp.Vector{X: hx, Y: y}, hy)
	seg.SetElasticity(g.Restitution)
	c.space.AddShape(seg)
	c.ground = true
	return nil
}

func (c *Chipmunk) AddBody(b BodySpec) (Handle, error) {
	if err := b.Validate(2); err != nil {
		return -1, err
	}
	mass := b.Mass(2)
	body := c.space.AddBody(cp.NewBody(mass, cp.MomentForCircle(mass, 0, b.Radius, cp.Vector{})))
	body.SetPosition(cp.Vector{X: b.Position.X(), Y: b.Position.Y()})
	body.SetVelocity(b.Velocity.X(), b.Velocity.Y())

	shape := c.space.AddShape(cp.NewCircle(body, b.Radius, cp.Vector{}))
	shape.SetElasticity(b.Restitution)

	c.bodies = append(c.bodies, body)
	c.radii = append(c.radii, b.Radius)
	return Handle(len(c.bodies) - 1), nil
}

func (c *Chipmunk) Step(dt float64) {
	if !(dt > 0) {
		return
	}
	n := c.substeps(dt)
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		c.space.Step(h)
	}
}

func (c *Chipmunk) substeps(dt float64) int {
	if !c.ccd {
		return 1
	}
	n := 1
	for i, b := range c.bodies {
		v := b.Velocity()
		travel := math.Hypot(v.X, v.Y) * dt
		k := int(math.Ceil(travel / (0.5 * c.radii[i])))
		if k > n {
			n = k
		}
	}
	return min(n, maxSubsteps)
}

func (c *Chipmunk) Position(h Handle) mgl64.Vec3 {
	p := c.bodies[h].Position()
	return mgl64.Vec3{p.X, p.Y, 0}
}

func (c *Chipmunk) Velocity(h Handle) mgl64.Vec3 {
	v := c.bodies[h].Velocity()
	return mgl64.Vec3{v.X, v.Y, 0}
}

// NewEngine builds the named engine for dim. Only the native engine
// supports 3D.
func NewEngine(name string, dim int, opts Options) (Engine, error) {
	if err := dynamo.ValidDim(dim); err != nil {
		return nil, err
	}
	switch name {
	case "", "native":
		return NewWorld(dim, opts)
	case "chipmunk":
		if dim != 2 {
			return nil, fmt.Errorf("%w: chipmunk is 2D only", dynamo.ErrUnsupportedDim)
		}
		return NewChipmunk(opts.Iterations, opts.CCD), nil
	}
	return nil, fmt.Errorf("unknown engine: %s", name)
}
