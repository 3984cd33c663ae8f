package mpc

import "github.com/san-kum/mpcdrive/internal/ad"

// Cost sums the tracking, actuation and actuation-rate terms over the
// horizon. No term is normalised by dt.
func Cost[T any](ar ad.Arith[T], h Horizon, w Weights, v View[T]) T {
	n := h.Steps
	cost := ar.Const(0)

	for t := 0; t < n; t++ {
		cost = ar.Add(cost, ar.Scale(w.CTE, ad.Square(ar, v.At(BlockCTE, t))))
		cost = ar.Add(cost, ar.Scale(w.EPsi, ad.Square(ar, v.At(BlockEPsi, t))))
		cost = ar.Add(cost, ar.Scale(w.Speed, ad.Square(ar, ar.Shift(v.At(BlockV, t), -h.RefSpeed))))
	}

	for t := 0; t < n-1; t++ {
		delta, a := v.Steer(t), v.Accel(t)
		cost = ar.Add(cost, ar.Scale(w.Steer, ad.Square(ar, delta)))
		cost = ar.Add(cost, ar.Scale(w.Accel, ad.Square(ar, a)))
		// sharp steering at speed
		cost = ar.Add(cost, ar.Scale(w.SteerSpeed, ad.Square(ar, ar.Mul(delta, v.At(BlockV, t)))))
	}

	for t := 0; t < n-2; t++ {
		cost = ar.Add(cost, ar.Scale(w.SteerRate, ad.Square(ar, ar.Sub(v.Steer(t+1), v.Steer(t)))))
		cost = ar.Add(cost, ar.Scale(w.AccelRate, ad.Square(ar, ar.Sub(v.Accel(t+1), v.Accel(t)))))
	}

	return cost
}
