package physics

import (
	"fmt"

	"github.com/san-kum/langevin/internal/dynamo"
)

// DampedParticle is a free particle subject to linear (Stokes) friction.
// State is (x, v); dx/dt = v, dv/dt = -Gamma*v/Mass.
type DampedParticle struct {
	Mass  float64
	Gamma float64
}

var (
	_ dynamo.System      = (*DampedParticle)(nil)
	_ dynamo.Hamiltonian = (*DampedParticle)(nil)
)

func NewDampedParticle(mass, gamma float64) (*DampedParticle, error) {
	if err := validateParticle(mass, gamma); err != nil {
		return nil, err
	}
	return &DampedParticle{Mass: mass, Gamma: gamma}, nil
}

func validateParticle(mass, gamma float64) error {
	if mass == 0 {
		return dynamo.ErrDivisionByZero
	}
	if mass < 0 {
		return fmt.Errorf("%w: mass must be positive, got %g", dynamo.ErrInvalidConfiguration, mass)
	}
	if gamma < 0 {
		return fmt.Errorf("%w: damping must be non-negative, got %g", dynamo.ErrInvalidConfiguration, gamma)
	}
	return nil
}

func (d *DampedParticle) StateDim() int { return 2 }

// Derive ignores t; the dynamics are time-invariant.
func (d *DampedParticle) Derive(_ float64, s dynamo.State) dynamo.State {
	v := s[dynamo.Velocity]
	return dynamo.State{v, -d.Gamma * v / d.Mass}
}

// Energy is the kinetic energy; the particle moves in a flat potential.
func (d *DampedParticle) Energy(s dynamo.State) float64 {
	v := s[dynamo.Velocity]
	return 0.5 * d.Mass * v * v
}

// RelaxationTime is the velocity decay time m/gamma. It is +Inf for an
// undamped particle.
func (d *DampedParticle) RelaxationTime() float64 {
	return d.Mass / d.Gamma
}

func (d *DampedParticle) GetParams() map[string]float64 {
	return map[string]float64{"mass": d.Mass, "gamma": d.Gamma}
}

func (d *DampedParticle) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := validateParticle(value, d.Gamma); err != nil {
			return err
		}
		d.Mass = value
	case "gamma":
		if err := validateParticle(d.Mass, value); err != nil {
			return err
		}
		d.Gamma = value
	default:
		return fmt.Errorf("unknown parameter: %s", name)
	}
	return nil
}
