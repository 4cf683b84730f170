// Package params converts physical inputs into the quantities the
// stochastic integrator consumes: the time grid, the thermal noise
// distribution and the initial state.
package params

import (
	"fmt"
	"math"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/physics"
)

// gridTolerance absorbs rounding in Duration/Dt, e.g. 1/1e-3.
const gridTolerance = 1e-9

// Physical is the full set of inputs for one realization.
type Physical struct {
	Duration    float64 // t_t, total simulated time
	Dt          float64
	InitPos     float64
	InitVel     float64
	Mass        float64
	Gamma       float64
	Temperature float64
	Lambda      float64 // noise scale
	WallSize    float64 // upper absorbing boundary; the lower one is at 0
	Noise       bool
	Units       physics.Units
}

// Noise is either disabled or a Gaussian kick N(Mean, StdDev²) applied to
// state component Index. The zero value is disabled.
type Noise struct {
	Enabled bool
	Index   int
	Mean    float64
	StdDev  float64
}

func Disabled() Noise { return Noise{} }

func Gaussian(index int, mean, stdDev float64) Noise {
	return Noise{Enabled: true, Index: index, Mean: mean, StdDev: stdDev}
}

func (n Noise) String() string {
	if !n.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("N(%g, %g²) on x[%d]", n.Mean, n.StdDev, n.Index)
}

// Dynamics holds the parameters of the damped particle model.
type Dynamics struct {
	Mass  float64
	Gamma float64
}

// Setup is the normalized form of Physical.
type Setup struct {
	Grid     []float64
	Noise    Noise
	Dynamics Dynamics
	Initial  dynamo.State
}

// StdDev returns sqrt(2 k T Lambda dt), the per-step standard deviation
// of the thermal forcing required by the fluctuation-dissipation relation.
func StdDev(k, temperature, lambda, dt float64) float64 {
	return math.Sqrt(2 * k * temperature * lambda * dt)
}

// GridLen is floor(duration/dt) + 1.
func GridLen(duration, dt float64) int {
	return int(math.Floor(duration/dt+gridTolerance)) + 1
}

// TimeGrid returns n = GridLen(duration, dt) points spaced dt apart from 0.
func TimeGrid(duration, dt float64) []float64 {
	n := GridLen(duration, dt)
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) * dt
	}
	return grid
}

// Validate checks p without building anything.
func (p Physical) Validate() error {
	if !(p.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidConfiguration, p.Dt)
	}
	if !(p.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrInvalidConfiguration, p.Duration)
	}
	if GridLen(p.Duration, p.Dt) < 2 {
		return fmt.Errorf("%w: dt (%g) larger than duration (%g)", dynamo.ErrInvalidConfiguration, p.Dt, p.Duration)
	}
	if p.Mass == 0 {
		return dynamo.ErrDivisionByZero
	}
	if p.Mass < 0 {
		return fmt.Errorf("%w: mass must be positive, got %g", dynamo.ErrInvalidConfiguration, p.Mass)
	}
	if p.Gamma < 0 {
		return fmt.Errorf("%w: damping must be non-negative, got %g", dynamo.ErrInvalidConfiguration, p.Gamma)
	}
	if p.Noise {
		if p.Temperature < 0 {
			return fmt.Errorf("%w: temperature must be non-negative, got %g", dynamo.ErrInvalidConfiguration, p.Temperature)
		}
		if !(p.Lambda > 0) {
			return fmt.Errorf("%w: noise scale must be positive, got %g", dynamo.ErrInvalidConfiguration, p.Lambda)
		}
	}
	return nil
}

// ValidateWall checks the absorbing boundary. It is separate from Validate
// because Normalize does not need the wall.
func (p Physical) ValidateWall() error {
	if !(p.WallSize > 0) {
		return fmt.Errorf("%w: got %g", dynamo.ErrInvalidBoundary, p.WallSize)
	}
	return nil
}

// Normalize builds the grid, noise specification, dynamics parameters and
// initial state for p.
func Normalize(p Physical) (*Setup, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	noise := Disabled()
	if p.Noise {
		noise = Gaussian(dynamo.Velocity, 0, StdDev(p.Units.Boltzmann(), p.Temperature, p.Lambda, p.Dt))
	}

	return &Setup{
		Grid:     TimeGrid(p.Duration, p.Dt),
		Noise:    noise,
		Dynamics: Dynamics{Mass: p.Mass, Gamma: p.Gamma},
		Initial:  dynamo.State{p.InitPos, p.InitVel},
	}, nil
}
