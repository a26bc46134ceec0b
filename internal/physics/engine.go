package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
)

// Handle identifies a body inside the engine that created it.
type Handle int

type Engine interface {
	Name() string
	Dim() int
	SetGravity(g mgl64.Vec3)
	AddGround(g GroundSpec) error
	AddBody(b BodySpec) (Handle, error)
	Step(dt float64)
	Position(h Handle) mgl64.Vec3
	Velocity(h Handle) mgl64.Vec3
}

// BodySpec configures one dynamic sphere.
type BodySpec struct {
	Radius      float64
	Density     float64
	Restitution float64
	Position    mgl64.Vec3
	Velocity    mgl64.Vec3
}

// Mass is area*density in 2D and volume*density in 3D.
func (b BodySpec) Mass(dim int) float64 {
	if dim == 2 {
		return b.Density * math.Pi * b.Radius * b.Radius
	}
	return b.Density * 4.0 / 3.0 * math.Pi * b.Radius * b.Radius * b.Radius
}

func (b BodySpec) Validate(dim int) error {
	switch {
	case !(b.Radius > 0) || math.IsInf(b.Radius, 0):
		return fmt.Errorf("%w: radius must be positive, got %v", dynamo.ErrInvalidGeometry, b.Radius)
	case !(b.Density > 0) || math.IsInf(b.Density, 0):
		return fmt.Errorf("%w: density must be positive, got %v", dynamo.ErrInvalidGeometry, b.Density)
	case !(b.Restitution >= 0 && b.Restitution <= 1):
		return fmt.Errorf("%w: restitution must be in [0,1], got %v", dynamo.ErrInvalidGeometry, b.Restitution)
	case !dynamo.VecIsValid(b.Position) || !dynamo.VecIsValid(b.Velocity):
		return fmt.Errorf("%w: body position/velocity", dynamo.ErrInvalidState)
	case dim == 2 && (b.Position.Z() != 0 || b.Velocity.Z() != 0):
		return fmt.Errorf("%w: z component set in a 2D world", dynamo.ErrDimensionMismatch)
	}
	return nil
}

// GroundSpec is a static slab whose upper face sits at Top. HalfExtents are
// measured from the slab centre; the z extent is ignored in 2D.
type GroundSpec struct {
	HalfExtents mgl64.Vec3
	Top         float64
	Restitution float64
}

// DefaultGround is a 20 x 0.2 (x 20) slab with its top at y = 0.
func DefaultGround(dim int) GroundSpec {
	g := GroundSpec{HalfExtents: mgl64.Vec3{10, 0.1, 10}}
	if dim == 2 {
		g.HalfExtents[2] = 0
	}
	return g
}

func (g GroundSpec) Validate(dim int) error {
	if !(g.HalfExtents.X() > 0) || !(g.HalfExtents.Y() > 0) {
		return fmt.Errorf("%w: ground half extents must be positive, got %v", dynamo.ErrInvalidGeometry, g.HalfExtents)
	}
	if dim == 3 && !(g.HalfExtents.Z() > 0) {
		return fmt.Errorf("%w: 3D ground needs a positive z half extent", dynamo.ErrInvalidGeometry)
	}
	if !(g.Restitution >= 0 && g.Restitution <= 1) {
		return fmt.Errorf("%w: ground restitution must be in [0,1], got %v", dynamo.ErrInvalidGeometry, g.Restitution)
	}
	if math.IsNaN(g.Top) || math.IsInf(g.Top, 0) {
		return fmt.Errorf("%w: ground top", dynamo.ErrInvalidState)
	}
	return nil
}

func (g GroundSpec) center() mgl64.Vec3 {
	return mgl64.Vec3{0, g.Top - g.HalfExtents.Y(), 0}
}

// CombineRule merges the restitution of two touching colliders.
type CombineRule int

const (
	CombineAverage CombineRule = iota
	CombineMin
	CombineMax
	CombineMultiply
)

func (r CombineRule) Combine(a, b float64) float64 {
	switch r {
	case CombineMin:
		return math.Min(a, b)
	case CombineMax:
		return math.Max(a, b)
	case CombineMultiply:
		return a * b
	default:
		return (a + b) / 2
	}
}

func (r CombineRule) String() string {
	switch r {
	case CombineMin:
		return "min"
	case CombineMax:
		return "max"
	case CombineMultiply:
		return "multiply"
	default:
		return "average"
	}
}

func ParseCombineRule(s string) (CombineRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "average", "avg":
		return CombineAverage, nil
	case "min":
		return CombineMin, nil
	case "max":
		return CombineMax, nil
	case "multiply", "product":
		return CombineMultiply, nil
	}
	return CombineAverage, fmt.Errorf("unknown combine rule: %s", s)
}
