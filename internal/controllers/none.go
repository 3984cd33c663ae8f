// Package controllers holds the baseline path followers the MPC driver is
// compared against.
package controllers

import "github.com/san-kum/mpcdrive/internal/sim"

// None holds the wheel centred with zero throttle, so the car coasts along
// its initial heading. It anchors the metrics of every comparison.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{dim: dim}
}

func (n *None) Compute(x sim.State, t float64) sim.Control {
	return make(sim.Control, n.dim)
}
