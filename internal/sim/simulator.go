// Package sim runs single Langevin realizations: it normalizes the
// physical parameters, builds the damped particle and drives the
// stochastic integrator over the time grid.
package sim

import (
	"context"
	"math/rand/v2"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/integrators"
	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/physics"
)

// MetricFactory builds a fresh metric for one run.
type MetricFactory func(p params.Physical) dynamo.Metric

// Simulator produces trajectories. It holds no per-run state, so one
// Simulator may serve concurrent runs as long as every run gets its own
// random source.
type Simulator struct {
	newStepper func() dynamo.Stepper
	metrics    []MetricFactory
	observers  []dynamo.Observer
}

// New returns a Simulator that builds a fresh stepper for every run. A nil
// newStepper selects RK4.
func New(newStepper func() dynamo.Stepper) *Simulator {
	if newStepper == nil {
		newStepper = func() dynamo.Stepper { return integrators.NewRK4() }
	}
	return &Simulator{
		newStepper: newStepper,
		metrics:    make([]MetricFactory, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m MetricFactory) { s.metrics = append(s.metrics, m) }

// AddObserver registers an observer notified of every stored sample. Shared
// observers must be safe for concurrent use when runs are parallel.
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run produces one realization for p, drawing thermal kicks from r. r may
// be nil when p.Noise is false.
func (s *Simulator) Run(ctx context.Context, p params.Physical, r *rand.Rand) (*dynamo.Trajectory, error) {
	if err := p.ValidateWall(); err != nil {
		return nil, err
	}
	setup, err := params.Normalize(p)
	if err != nil {
		return nil, err
	}

	dyn, err := physics.NewDampedParticle(setup.Dynamics.Mass, setup.Dynamics.Gamma)
	if err != nil {
		return nil, err
	}

	metrics := make([]dynamo.Metric, 0, len(s.metrics))
	observers := make([]dynamo.Observer, 0, len(s.metrics)+len(s.observers))
	for _, f := range s.metrics {
		m := f(p)
		m.Reset()
		metrics = append(metrics, m)
		observers = append(observers, metricObserver{m})
	}
	observers = append(observers, s.observers...)

	traj, err := integrators.Integrate(ctx, integrators.Input{
		System:    dyn,
		Stepper:   s.newStepper(),
		Grid:      setup.Grid,
		Initial:   setup.Initial,
		Mass:      setup.Dynamics.Mass,
		Wall:      p.WallSize,
		Noise:     setup.Noise,
		Rand:      r,
		Observers: observers,
	})
	if err != nil {
		return nil, err
	}

	for _, m := range metrics {
		traj.Metrics[m.Name()] = m.Value()
	}
	return traj, nil
}

type metricObserver struct{ m dynamo.Metric }

func (o metricObserver) OnStep(x dynamo.State, t float64) { o.m.Observe(x, t) }

// NewRand returns a PCG-backed source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
