package experiment

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/integrators"
	"github.com/san-kum/langevin/internal/metrics"
	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/physics"
	"github.com/san-kum/langevin/internal/sim"
)

type Registry struct {
	integrators map[string]func() dynamo.Stepper
	metrics     map[string]sim.MetricFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Stepper),
		metrics:     make(map[string]sim.MetricFactory),
	}

	r.integrators["euler"] = func() dynamo.Stepper { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Stepper { return integrators.NewRK4() }

	r.metrics["kinetic_temperature"] = func(p params.Physical) dynamo.Metric {
		return metrics.NewKineticTemperature(p.Mass, p.Units.Boltzmann())
	}
	r.metrics["max_excursion"] = func(params.Physical) dynamo.Metric {
		return metrics.NewExcursion()
	}
	r.metrics["dissipation_rate"] = func(p params.Physical) dynamo.Metric {
		return metrics.NewDissipationRate(&physics.DampedParticle{Mass: p.Mass, Gamma: p.Gamma})
	}

	return r
}

// GetIntegrator returns a constructor so every run gets its own stepper.
func (r *Registry) GetIntegrator(name string) (func() dynamo.Stepper, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrInvalidConfiguration, name)
	}
	return fn, nil
}

func (r *Registry) GetMetric(name string) (sim.MetricFactory, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string {
	return slices.Sorted(maps.Keys(r.integrators))
}

func (r *Registry) ListMetrics() []string {
	return slices.Sorted(maps.Keys(r.metrics))
}

// DefaultMetrics are attached to every simulator built from a config.
func (r *Registry) DefaultMetrics() []sim.MetricFactory {
	out := make([]sim.MetricFactory, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name])
	}
	return out
}
