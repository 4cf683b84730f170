// Package physics provides the dynamical model of a Brownian particle.
//
// [DampedParticle] implements the [dynamo.System] interface for the
// deterministic part of the Langevin equation,
//
//	dx/dt = v
//	dv/dt = -gamma v / m
//
// The thermal forcing is not part of the model; the stochastic integrator
// adds it after every deterministic step.
//
// [Units] picks the Boltzmann constant: [SI] for physical runs and
// [Reduced] (k_B = 1) for dimensionless ones.
package physics
