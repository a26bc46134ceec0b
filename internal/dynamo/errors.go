package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation and telemetry operations.
var (
	// ErrInvalidState indicates a vector holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mixed 2D/3D vectors or a dimension field
	// that disagrees with the number of values.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnsupportedDim indicates a world that is neither 2D nor 3D.
	ErrUnsupportedDim = errors.New("dynamo: dimension must be 2 or 3")

	// ErrInvalidGeometry indicates a body or ground that cannot be simulated.
	ErrInvalidGeometry = errors.New("dynamo: invalid geometry")
)

// SimulationError wraps an error with the tick it happened on.
type SimulationError struct {
	Step    uint64
	Body    int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d body %d: %v", e.Step, e.Body, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
