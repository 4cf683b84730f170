package integrators

import (
	"fmt"

	"github.com/san-kum/langevin/internal/dynamo"
)

// RK4 is the classic fourth-order Runge-Kutta stepper. Scratch buffers are
// reused between steps, so an RK4 value must not be shared between
// goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, h float64) (dynamo.State, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := derive(dyn, r.k1, x, t); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k1[i]
	}
	if err := derive(dyn, r.k2, r.scratch, t+h*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k2[i]
	}
	if err := derive(dyn, r.k3, r.scratch, t+h*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*r.k3[i]
	}
	if err := derive(dyn, r.k4, r.scratch, t+h); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	h6 := h / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}

// derive evaluates dyn at (t, x) into dst and rejects derivatives whose
// length differs from the state.
func derive(dyn dynamo.System, dst, x dynamo.State, t float64) error {
	dx := dyn.Derive(t, x)
	if len(dx) != len(x) {
		return fmt.Errorf("%w: state has %d components, derivative has %d", dynamo.ErrShapeMismatch, len(x), len(dx))
	}
	copy(dst, dx)
	return nil
}
