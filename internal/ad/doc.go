// Package ad provides the arithmetic capability used to write the trajectory
// cost and constraint functions once and evaluate them with or without
// derivatives.
//
// Code that needs derivatives is written against [Arith], a small set of
// operations over an opaque numeric type T:
//
//   - [Float]: plain float64 evaluation
//   - [Dual]: forward-mode directional derivatives on gonum dual numbers
//   - [SparseArith]: forward-mode gradients carried as sparse vectors
//   - [HessArith]: sparse gradients plus the upper triangle of the Hessian
//
// # Example
//
//	func f[T any](ar ad.Arith[T], x, y T) T {
//		return ar.Add(ar.Mul(x, y), ar.Sin(x))
//	}
//
//	v := f(ad.Float{}, 1, 2)                                  // value only
//	g := f(ad.SparseArith{}, ad.Var(0, 1), ad.Var(1, 2))      // value + gradient
//
// Sparse gradients keep the per-constraint derivative cost proportional to
// the handful of variables each constraint touches, which is what makes the
// Jacobian of a long horizon cheap to build.
package ad
