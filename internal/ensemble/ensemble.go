// Package ensemble runs many independent Langevin realizations and
// collects the first-passage times of the ones absorbed at a wall.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/langevin/internal/analysis"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/sim"
)

// Runner produces one realization. *sim.Simulator implements it.
type Runner interface {
	Run(ctx context.Context, p params.Physical, r *rand.Rand) (*dynamo.Trajectory, error)
}

// Sink receives every trajectory, absorbed or not. Sinks are called
// concurrently when Workers > 1 and must only touch per-trial resources.
type Sink func(trial int, traj *dynamo.Trajectory) error

type Config struct {
	Trials int
	// Seed is the base seed; trial i draws from a PCG source seeded Seed+i.
	Seed    uint64
	Workers int
	Sink    Sink
	// OnTrial is called once per finished trial. Calls are serialized.
	OnTrial func(Outcome)
}

// Outcome summarizes one trial.
type Outcome struct {
	Index       int
	Seed        uint64
	Steps       int
	Absorbed    bool
	PassageTime float64 // final time of an absorbed trial, zero otherwise
	FinalPos    float64
	Metrics     map[string]float64
}

type Result struct {
	Trials   int
	Absorbed int
	// Censored counts trials that used the whole time budget without
	// reaching a wall. They are excluded from Samples.
	Censored  int
	Samples   []float64 // first-passage times in trial order
	Outcomes  []Outcome
	Histogram analysis.Histogram
	Summary   analysis.Summary
}

type Aggregator struct {
	runner Runner
	cfg    Config
	mu     sync.Mutex
}

func New(runner Runner, cfg Config) *Aggregator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Aggregator{runner: runner, cfg: cfg}
}

// TrialSeed is the seed of trial i for base seed base.
func TrialSeed(base uint64, i int) uint64 {
	return base + uint64(i)
}

// Run executes the configured number of trials for p. Configuration errors
// are reported before any trial starts; the first failing trial aborts the
// whole ensemble.
func (a *Aggregator) Run(ctx context.Context, p params.Physical) (*Result, error) {
	if a.cfg.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", dynamo.ErrInvalidConfiguration, a.cfg.Trials)
	}
	if err := p.ValidateWall(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, a.cfg.Trials)

	if a.cfg.Workers == 1 {
		for i := range outcomes {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			out, err := a.trial(ctx, p, i)
			if err != nil {
				return nil, err
			}
			outcomes[i] = out
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.cfg.Workers)
		for i := range outcomes {
			g.Go(func() error {
				out, err := a.trial(gctx, p, i)
				if err != nil {
					return err
				}
				outcomes[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return collect(outcomes), nil
}

func (a *Aggregator) trial(ctx context.Context, p params.Physical, i int) (Outcome, error) {
	seed := TrialSeed(a.cfg.Seed, i)
	traj, err := a.runner.Run(ctx, p, sim.NewRand(seed))
	if err != nil {
		return Outcome{}, fmt.Errorf("trial %d: %w", i, err)
	}

	if a.cfg.Sink != nil {
		if err := a.cfg.Sink(i, traj); err != nil {
			return Outcome{}, fmt.Errorf("trial %d: persist: %w", i, err)
		}
	}

	t, x, _ := traj.Final()
	out := Outcome{
		Index:    i,
		Seed:     seed,
		Steps:    traj.Len(),
		Absorbed: traj.Absorbed,
		FinalPos: x,
		Metrics:  traj.Metrics,
	}
	if traj.Absorbed {
		out.PassageTime = t
	}
	slog.Debug("trial finished", slog.Int("trial", i), slog.Bool("absorbed", out.Absorbed), slog.Float64("t", t))

	if a.cfg.OnTrial != nil {
		a.mu.Lock()
		a.cfg.OnTrial(out)
		a.mu.Unlock()
	}
	return out, nil
}

func collect(outcomes []Outcome) *Result {
	res := &Result{
		Trials:   len(outcomes),
		Outcomes: outcomes,
		Samples:  make([]float64, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		if !o.Absorbed {
			res.Censored++
			continue
		}
		res.Absorbed++
		res.Samples = append(res.Samples, o.PassageTime)
	}
	res.Histogram = analysis.AutoHistogram(res.Samples)
	res.Summary = analysis.Summarize(res.Samples)
	return res
}
