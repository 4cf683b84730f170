// Package dynamo provides core simulation primitives for stochastic
// one-dimensional particle dynamics.
//
// The package defines the fundamental interfaces and types shared by the
// integrators, the trajectory runner and the ensemble driver:
//
//   - [State]: vector representing system state (position, velocity)
//   - [System]: interface for ODE systems (dX/dt = f(t, X))
//   - [Stepper]: deterministic single-step integrator interface
//   - [Trajectory]: a (possibly truncated) realization
//   - [Metric], [Observer]: per-sample observation hooks
//
// # Example
//
//	dyn, _ := physics.NewDampedParticle(1e-9, 1e-10)
//	traj, err := integrators.Integrate(ctx, integrators.Input{
//	    System:  dyn,
//	    Stepper: integrators.NewRK4(),
//	    Grid:    grid,
//	    Initial: dynamo.State{2.5, 0},
//	    Mass:    1e-9,
//	    Wall:    5,
//	})
//
// # Errors
//
// Configuration problems are reported through the sentinel errors in
// errors.go and are raised before the first step is taken.
package dynamo
