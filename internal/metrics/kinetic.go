package metrics

import (
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/physics"
)

// KineticTemperature is the time average of m v² / k_B over the stored
// samples. For a thermalized ensemble it approaches the bath temperature
// (equipartition, one degree of freedom).
type KineticTemperature struct {
	name    string
	mass    float64
	k       float64
	samples int
	sum     float64
}

func NewKineticTemperature(mass, boltzmann float64) *KineticTemperature {
	return &KineticTemperature{
		name: "kinetic_temperature",
		mass: mass,
		k:    boltzmann,
	}
}

func (e *KineticTemperature) Name() string { return e.name }

func (e *KineticTemperature) Observe(x dynamo.State, _ float64) {
	if len(x) <= dynamo.Velocity {
		return
	}
	v := x[dynamo.Velocity]
	e.sum += e.mass * v * v / e.k
	e.samples++
}

func (e *KineticTemperature) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *KineticTemperature) Reset() {
	e.sum = 0
	e.samples = 0
}

// DissipationRate is the time average of the power lost to friction,
// gamma v² = 2E/tau for the damped particle. In equilibrium it approaches
// gamma k_B T / m.
type DissipationRate struct {
	name     string
	particle *physics.DampedParticle
	samples  int
	sum      float64
}

func NewDissipationRate(particle *physics.DampedParticle) *DissipationRate {
	return &DissipationRate{
		name:     "dissipation_rate",
		particle: particle,
	}
}

func (e *DissipationRate) Name() string { return e.name }

func (e *DissipationRate) Observe(x dynamo.State, _ float64) {
	if len(x) <= dynamo.Velocity {
		return
	}
	// an undamped particle has tau = +Inf and dissipates nothing
	e.sum += 2 * e.particle.Energy(x) / e.particle.RelaxationTime()
	e.samples++
}

func (e *DissipationRate) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *DissipationRate) Reset() {
	e.sum = 0
	e.samples = 0
}
