package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
	"github.com/san-kum/langevin/internal/params"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	if got := reg.ListIntegrators(); len(got) != 2 || got[0] != "euler" || got[1] != "rk4" {
		t.Errorf("unexpected integrators %v", got)
	}
	for _, name := range reg.ListIntegrators() {
		fn, err := reg.GetIntegrator(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if fn() == fn() {
			t.Errorf("%s: constructor returned a shared stepper", name)
		}
	}

	if _, err := reg.GetIntegrator("verlet"); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration, got %v", err)
	}
	if _, err := reg.GetMetric("nope"); err == nil {
		t.Error("expected error for unknown metric")
	}
	if len(reg.DefaultMetrics()) != len(reg.ListMetrics()) {
		t.Error("default metrics should cover every registered metric")
	}
}

func TestMetricFactoriesAreFresh(t *testing.T) {
	reg := NewRegistry()
	p := params.Physical{Mass: 2, Gamma: 0.5}
	for _, name := range reg.ListMetrics() {
		f, err := reg.GetMetric(name)
		if err != nil {
			t.Fatal(err)
		}
		a, b := f(p), f(p)
		if a == b {
			t.Errorf("%s: factory returned a shared metric", name)
		}
		if a.Name() != name {
			t.Errorf("metric registered as %s reports name %s", name, a.Name())
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected unknown integrator error")
	}

	cfg = *config.DefaultConfig()
	cfg.Wall = -1
	if _, err := New(cfg, nil); !errors.Is(err, dynamo.ErrInvalidBoundary) {
		t.Errorf("expected invalid boundary, got %v", err)
	}

	cfg = *config.DefaultConfig()
	cfg.Wall = 0
	if _, err := New(cfg, nil); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected a zero wall to be an invalid configuration, got %v", err)
	}

	for _, trials := range []int{0, -3} {
		cfg = *config.DefaultConfig()
		cfg.Trials = trials
		if _, err := New(cfg, nil); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
			t.Errorf("trials %d: expected invalid configuration, got %v", trials, err)
		}
	}

	cfg = *config.DefaultConfig()
	cfg.Units = "imperial"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected unit error")
	}
}

func TestRunTrajectoryStartOnWall(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.InitPos = 0
	cfg.Seed = 3

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	traj, err := exp.RunTrajectory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if traj.Len() != 1 || !traj.Absorbed {
		t.Fatalf("expected a single absorbed sample, got %d (absorbed=%v)", traj.Len(), traj.Absorbed)
	}
	if _, ok := traj.Metrics["kinetic_temperature"]; !ok {
		t.Error("default metrics not attached")
	}
}

func TestRunTrajectoryReproducible(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.Seed = 17

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, err := exp.RunTrajectory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := exp.RunTrajectory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestRunEnsemble(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.Trials = 10
	cfg.Workers = 2
	cfg.Seed = 5

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	sunk := 0
	sink := func(int, *dynamo.Trajectory) error { return nil }
	res, err := exp.RunEnsemble(context.Background(), sink, func(ensemble.Outcome) { sunk++ })
	if err != nil {
		t.Fatal(err)
	}
	if res.Trials != 10 || sunk != 10 {
		t.Errorf("trials=%d reported=%d", res.Trials, sunk)
	}
	if res.Absorbed+res.Censored != res.Trials {
		t.Errorf("absorbed %d + censored %d != %d", res.Absorbed, res.Censored, res.Trials)
	}
	if res.Histogram.Total() != len(res.Samples) {
		t.Errorf("histogram holds %d of %d samples", res.Histogram.Total(), len(res.Samples))
	}
}

func TestModel(t *testing.T) {
	exp, err := New(*config.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := exp.Model()
	if err != nil {
		t.Fatal(err)
	}
	if got := m.RelaxationTime(); math.Abs(got-10) > 1e-9 {
		t.Errorf("relaxation time = %g, want 10", got)
	}
}
