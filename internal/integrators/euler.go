// Package integrators advances a sim.Dynamics plant by one fixed step.
package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mpcdrive/internal/sim"
)

// Euler is the explicit first-order method. The MPC model is a forward
// Euler discretisation too, so with matching dt and no latency the plant
// follows the prediction step for step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	result := make(sim.State, len(x))
	floats.AddScaledTo(result, x, dt, dyn.Derivative(x, u, t))
	return result
}
