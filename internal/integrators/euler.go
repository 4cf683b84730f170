package integrators

import "github.com/san-kum/langevin/internal/dynamo"

// Euler is the explicit first-order stepper, kept as a cheap reference
// against which the RK4 drift can be compared.
type Euler struct {
	k dynamo.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t, h float64) (dynamo.State, error) {
	if len(e.k) != len(x) {
		e.k = make(dynamo.State, len(x))
	}
	if err := derive(dyn, e.k, x, t); err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + h*e.k[i]
	}
	return result, nil
}
