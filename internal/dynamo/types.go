package dynamo

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Tick is the per-step output of the simulator before it is numbered.
type Tick struct {
	Positions  []mgl64.Vec3
	Velocities []mgl64.Vec3
	Dim        int
	Cost       time.Duration
}

// Flatten appends Dim components of every position to dst in body order.
func (t Tick) Flatten(dst State) State {
	for _, p := range t.Positions {
		dst = append(dst, p[:t.Dim]...)
	}
	return dst
}

// Size is the number of reals Flatten emits.
func (t Tick) Size() int { return t.Dim * len(t.Positions) }

// CostMicros is the tick cost in whole microseconds, as logged.
func (t Tick) CostMicros() uint64 {
	if t.Cost < 0 {
		return 0
	}
	return uint64(t.Cost / time.Microsecond)
}

// Sample is a tick after the durable log assigned it a sequence number.
type Sample struct {
	Sequence   uint64
	Dimension  int
	Positions  State
	TickCostUS uint64
}

func ValidDim(dim int) error {
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: got %d", ErrUnsupportedDim, dim)
	}
	return nil
}

// VecFromSlice converts 2 or 3 reals into a vector; dim must match len(s).
func VecFromSlice(s []float64, dim int) (mgl64.Vec3, error) {
	if err := ValidDim(dim); err != nil {
		return mgl64.Vec3{}, err
	}
	if len(s) != dim {
		return mgl64.Vec3{}, fmt.Errorf("%w: want %d components, got %d", ErrDimensionMismatch, dim, len(s))
	}
	var v mgl64.Vec3
	copy(v[:], s)
	if !State(v[:]).IsValid() {
		return mgl64.Vec3{}, ErrInvalidState
	}
	return v, nil
}

func VecIsValid(v mgl64.Vec3) bool {
	return State(v[:]).IsValid()
}
