package physics

import "fmt"

// Units selects the value of the Boltzmann constant used by the
// fluctuation-dissipation relation.
type Units string

const (
	// SI uses k_B in J/K; masses in kg, lengths in m, times in s.
	SI Units = "si"
	// Reduced sets k_B = 1 so temperatures are energies.
	Reduced Units = "reduced"
)

// BoltzmannSI is the exact 2019 SI value of k_B in J/K.
const BoltzmannSI = 1.380649e-23

func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case Reduced, "":
		return Reduced, nil
	case SI:
		return SI, nil
	}
	return "", fmt.Errorf("unknown unit system: %q (want %q or %q)", s, SI, Reduced)
}

// Boltzmann returns k_B in the given unit system. The zero value is reduced.
func (u Units) Boltzmann() float64 {
	if u == SI {
		return BoltzmannSI
	}
	return 1
}
