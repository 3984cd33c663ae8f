package vehicle

import (
	"github.com/san-kum/mpcdrive/internal/ad"
	"github.com/san-kum/mpcdrive/internal/reference"
)

// StateWidth is the number of variables in State.
const StateWidth = 6

// Lf is the distance from the centre of gravity to the front axle that
// reproduces the simulator's turning radius.
const Lf = 2.67

// State is the tracking state at one step of the horizon.
type State[T any] struct {
	X, Y, Psi, V, CTE, EPsi T
}

// Slice returns the state in block order.
func (s State[T]) Slice() []T {
	return []T{s.X, s.Y, s.Psi, s.V, s.CTE, s.EPsi}
}

// FromSlice builds a state from block-ordered values.
func FromSlice[T any](v []T) State[T] {
	return State[T]{X: v[0], Y: v[1], Psi: v[2], V: v[3], CTE: v[4], EPsi: v[5]}
}

// Params are the model constants.
type Params struct {
	Lf float64
	Dt float64
}

// Step advances s by one timestep under steering delta and acceleration a.
// The reference curve c supplies the target lateral position and heading.
// Positive steering turns right, so it reduces the heading.
func Step[T any](ar ad.Arith[T], p Params, c reference.Coeffs, s State[T], delta, a T) State[T] {
	vdt := ar.Scale(p.Dt, s.V)
	yaw := ar.Scale(p.Dt/p.Lf, ar.Mul(s.V, delta))

	f := reference.Eval(ar, c, s.X)
	psiDes := reference.DesiredHeading(ar, c, s.X)

	return State[T]{
		X:    ar.Add(s.X, ar.Mul(vdt, ar.Cos(s.Psi))),
		Y:    ar.Add(s.Y, ar.Mul(vdt, ar.Sin(s.Psi))),
		Psi:  ar.Sub(s.Psi, yaw),
		V:    ar.Add(s.V, ar.Scale(p.Dt, a)),
		CTE:  ar.Add(ar.Sub(f, s.Y), ar.Mul(vdt, ar.Sin(s.EPsi))),
		EPsi: ar.Sub(ar.Sub(s.Psi, psiDes), yaw),
	}
}
