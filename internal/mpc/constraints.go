package mpc

import (
	"github.com/san-kum/mpcdrive/internal/ad"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

// Constraints fills g with one residual per state variable per step. Rows at
// step 0 carry the raw state so their bounds can pin it; later rows carry
// next - model(prev, delayed actuation) and are bounded to zero.
func Constraints[T any](ar ad.Arith[T], h Horizon, c reference.Coeffs, v View[T], g []T) {
	l := v.L
	p := h.Params()

	for _, b := range Blocks() {
		g[l.Row(b, 0)] = v.At(b, 0)
	}

	for t := 1; t < h.Steps; t++ {
		k, _ := ActuationIndex(t, h.DelaySteps)
		pred := vehicle.Step(ar, p, c, v.State(t-1), v.Steer(k), v.Accel(k))
		next := v.State(t)

		want, got := pred.Slice(), next.Slice()
		for b := range want {
			g[l.Row(Block(b), t)] = ar.Sub(got[b], want[b])
		}
	}
}
