// Package experiment wires a config into a simulator and an ensemble
// aggregator.
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/physics"
	"github.com/san-kum/langevin/internal/sim"
)

type Experiment struct {
	cfg       config.Config
	phys      params.Physical
	simulator *sim.Simulator
}

// New validates cfg and builds its simulator. cfg.Seed should already be
// resolved.
func New(cfg config.Config, reg *Registry) (*Experiment, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	phys, err := cfg.Physical()
	if err != nil {
		return nil, err
	}
	if err := phys.ValidateWall(); err != nil {
		return nil, err
	}
	if err := phys.Validate(); err != nil {
		return nil, err
	}
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", dynamo.ErrInvalidConfiguration, cfg.Trials)
	}
	newStepper, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(newStepper)
	for _, m := range reg.DefaultMetrics() {
		s.AddMetric(m)
	}
	return &Experiment{cfg: cfg, phys: phys, simulator: s}, nil
}

func (e *Experiment) Config() config.Config { return e.cfg }
func (e *Experiment) Physical() params.Physical { return e.phys }
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Model returns the deterministic part of the dynamics.
func (e *Experiment) Model() (*physics.DampedParticle, error) {
	return physics.NewDampedParticle(e.phys.Mass, e.phys.Gamma)
}

// RunTrajectory produces the single realization seeded with cfg.Seed.
func (e *Experiment) RunTrajectory(ctx context.Context) (*dynamo.Trajectory, error) {
	slog.Info("running trajectory",
		slog.Uint64("seed", e.cfg.Seed),
		slog.String("integrator", e.cfg.Integrator),
		slog.String("units", string(e.phys.Units)))
	return e.simulator.Run(ctx, e.phys, sim.NewRand(e.cfg.Seed))
}

// RunEnsemble runs cfg.Trials realizations. sink and onTrial may be nil.
func (e *Experiment) RunEnsemble(ctx context.Context, sink ensemble.Sink, onTrial func(ensemble.Outcome)) (*ensemble.Result, error) {
	slog.Info("running ensemble",
		slog.Int("trials", e.cfg.Trials),
		slog.Int("workers", e.cfg.Workers),
		slog.Uint64("seed", e.cfg.Seed))

	agg := ensemble.New(e.simulator, ensemble.Config{
		Trials:  e.cfg.Trials,
		Seed:    e.cfg.Seed,
		Workers: e.cfg.Workers,
		Sink:    sink,
		OnTrial: onTrial,
	})
	res, err := agg.Run(ctx, e.phys)
	if err != nil {
		return nil, err
	}
	slog.Info("ensemble finished",
		slog.Int("absorbed", res.Absorbed),
		slog.Int("censored", res.Censored))
	return res, nil
}
