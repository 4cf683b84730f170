package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfiguration indicates a non-positive dt, duration, wall or
	// trial count, or a time step larger than the duration.
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDivisionByZero indicates a zero mass, which breaks both the drift
	// and the noise scaling.
	ErrDivisionByZero = errors.New("dynamo: division by zero (mass is zero)")

	// ErrShapeMismatch indicates a derivative whose length differs from the state.
	ErrShapeMismatch = errors.New("dynamo: derivative length does not match state length")

	// ErrInvalidBoundary indicates a non-positive absorbing wall position. It
	// is a kind of ErrInvalidConfiguration.
	ErrInvalidBoundary = fmt.Errorf("%w: absorbing boundary must be positive", ErrInvalidConfiguration)

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
