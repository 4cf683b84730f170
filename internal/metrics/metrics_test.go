package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/physics"
)

func TestKineticTemperature(t *testing.T) {
	m := NewKineticTemperature(2.0, 1.0)

	m.Observe(dynamo.State{0, 1}, 0)
	m.Observe(dynamo.State{0, 3}, 0.1)

	// (2*1 + 2*9) / 2
	if got := m.Value(); math.Abs(got-10) > 1e-12 {
		t.Errorf("expected kinetic temperature 10, got %v", got)
	}
	if m.Name() != "kinetic_temperature" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestKineticTemperatureReset(t *testing.T) {
	m := NewKineticTemperature(1.0, 1.0)

	m.Observe(dynamo.State{1.0, 1.0}, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero temperature")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero temperature after reset")
	}
}

func TestDissipationRate(t *testing.T) {
	p, _ := physics.NewDampedParticle(1, 0.5)
	m := NewDissipationRate(p)

	m.Observe(dynamo.State{0, 2}, 0)
	m.Observe(dynamo.State{0, 4}, 1)

	// (0.5*4 + 0.5*16) / 2
	if got := m.Value(); math.Abs(got-5) > 1e-12 {
		t.Errorf("expected dissipation rate 5, got %v", got)
	}
	if m.Name() != "dissipation_rate" {
		t.Errorf("unexpected name %q", m.Name())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero rate after reset")
	}
}

func TestDissipationRateUndamped(t *testing.T) {
	p, _ := physics.NewDampedParticle(1, 0)
	m := NewDissipationRate(p)

	m.Observe(dynamo.State{0, 3}, 0)
	if got := m.Value(); got != 0 {
		t.Errorf("expected no dissipation without friction, got %v", got)
	}
}

func TestDissipationRateNonZeroFromRest(t *testing.T) {
	p, _ := physics.NewDampedParticle(2, 1)
	m := NewDissipationRate(p)

	// a particle starting at rest and later kicked still reports a rate
	m.Observe(dynamo.State{0, 0}, 0)
	m.Observe(dynamo.State{0, 2}, 1)
	if got := m.Value(); math.Abs(got-2) > 1e-12 {
		t.Errorf("expected dissipation rate 2, got %v", got)
	}
}

func TestExcursion(t *testing.T) {
	m := NewExcursion()

	for _, x := range []float64{2.5, 3.0, 1.0, 2.0} {
		m.Observe(dynamo.State{x, 0}, 0)
	}
	if got := m.Value(); got != 1.5 {
		t.Errorf("expected excursion 1.5, got %v", got)
	}

	m.Reset()
	m.Observe(dynamo.State{10, 0}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero excursion after reset, got %v", m.Value())
	}
}
