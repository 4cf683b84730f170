package dynamo

import (
	"math"
)

// Indices of the phase-space components.
const (
	Position = 0
	Velocity = 1
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

// System is a time-dependent first-order ODE, dX/dt = f(t, X).
type System interface {
	Derive(t float64, x State) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Stepper advances a state by one deterministic step of size h.
type Stepper interface {
	Step(dyn System, x State, t, h float64) (State, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Trajectory is one realization of the integrator. Its slices are always of
// equal length and never longer than the time grid that produced it.
type Trajectory struct {
	Times      []float64
	Positions  []float64
	Velocities []float64

	// Truncated is set when the absorbing-boundary check stopped the run
	// before the grid was exhausted.
	Truncated bool
	// Absorbed is set when the final stored position is at or beyond a wall.
	Absorbed bool

	Metrics map[string]float64
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times:      make([]float64, 0, capacity),
		Positions:  make([]float64, 0, capacity),
		Velocities: make([]float64, 0, capacity),
		Metrics:    make(map[string]float64),
	}
}

func (tr *Trajectory) Append(t float64, x State) {
	tr.Times = append(tr.Times, t)
	tr.Positions = append(tr.Positions, x[Position])
	tr.Velocities = append(tr.Velocities, x[Velocity])
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// Final returns the last stored sample. It panics on an empty trajectory.
func (tr *Trajectory) Final() (t, x, v float64) {
	n := len(tr.Times) - 1
	return tr.Times[n], tr.Positions[n], tr.Velocities[n]
}

// OutsideWalls reports whether x lies at or beyond either absorbing boundary
// of the interval (0, wall).
func OutsideWalls(x, wall float64) bool {
	return x <= 0 || x >= wall
}
