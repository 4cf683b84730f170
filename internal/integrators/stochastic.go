package integrators

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/params"
)

// Input describes one stochastic integration.
type Input struct {
	System  dynamo.System
	Stepper dynamo.Stepper // RK4 when nil
	Grid    []float64
	Initial dynamo.State
	Mass    float64
	Wall    float64
	Noise   params.Noise
	// Rand supplies the thermal kicks; it is required when Noise is enabled.
	Rand      *rand.Rand
	Observers []dynamo.Observer
}

func (in *Input) validate() error {
	if !(in.Wall > 0) {
		return fmt.Errorf("%w: got %g", dynamo.ErrInvalidBoundary, in.Wall)
	}
	if in.Mass == 0 {
		return dynamo.ErrDivisionByZero
	}
	if len(in.Grid) < 2 {
		return fmt.Errorf("%w: time grid needs at least 2 points, got %d", dynamo.ErrInvalidConfiguration, len(in.Grid))
	}
	if len(in.Initial) <= dynamo.Velocity {
		return fmt.Errorf("%w: state needs position and velocity, got %d components", dynamo.ErrShapeMismatch, len(in.Initial))
	}
	if in.Noise.Enabled {
		if in.Rand == nil {
			return fmt.Errorf("%w: noise enabled without a random source", dynamo.ErrInvalidConfiguration)
		}
		if in.Noise.Index < 0 || in.Noise.Index >= len(in.Initial) {
			return fmt.Errorf("%w: noise index %d outside state of length %d", dynamo.ErrShapeMismatch, in.Noise.Index, len(in.Initial))
		}
	}
	return nil
}

// Integrate advances in.Initial over in.Grid with a deterministic stepper
// plus, when enabled, one Gaussian kick per step scaled by h/mass.
//
// Before every step the position is tested against the walls at 0 and
// in.Wall; once it is at or beyond either, integration stops and the
// trajectory holds the samples stored so far, including the crossing one.
func Integrate(ctx context.Context, in Input) (*dynamo.Trajectory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	stepper := in.Stepper
	if stepper == nil {
		stepper = NewRK4()
	}

	n := len(in.Grid)
	traj := dynamo.NewTrajectory(n)
	y := in.Initial.Clone()
	traj.Append(in.Grid[0], y)
	notify(in.Observers, y, in.Grid[0])

	for i := 0; i < n-1; i++ {
		if dynamo.OutsideWalls(y[dynamo.Position], in.Wall) {
			traj.Truncated = true
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t := in.Grid[i]
		h := in.Grid[i+1] - t

		next, err := stepper.Step(in.System, y, t, h)
		if err != nil {
			return nil, &dynamo.SimulationError{Step: i, Time: t, State: y, Wrapped: err}
		}

		if in.Noise.Enabled {
			kick := in.Noise.Mean + in.Noise.StdDev*in.Rand.NormFloat64()
			next[in.Noise.Index] += kick * h / in.Mass
		}

		if !next.IsValid() {
			return nil, &dynamo.SimulationError{Step: i, Time: t, State: y, Wrapped: dynamo.ErrUnstable}
		}

		y = next
		traj.Append(in.Grid[i+1], y)
		notify(in.Observers, y, in.Grid[i+1])
	}

	traj.Absorbed = dynamo.OutsideWalls(y[dynamo.Position], in.Wall)
	return traj, nil
}

func notify(observers []dynamo.Observer, x dynamo.State, t float64) {
	for _, o := range observers {
		o.OnStep(x, t)
	}
}
