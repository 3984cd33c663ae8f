package ad

import "math"

// Arith is the set of operations the trajectory formulation needs.
type Arith[T any] interface {
	Const(v float64) T
	Value(a T) float64
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Scale(k float64, a T) T
	Shift(a T, k float64) T
	Sin(a T) T
	Cos(a T) T
	Atan(a T) T
}

// Square returns a*a.
func Square[T any](ar Arith[T], a T) T {
	return ar.Mul(a, a)
}

// Float evaluates values only.
type Float struct{}

func (Float) Const(v float64) float64            { return v }
func (Float) Value(a float64) float64            { return a }
func (Float) Add(a, b float64) float64           { return a + b }
func (Float) Sub(a, b float64) float64           { return a - b }
func (Float) Mul(a, b float64) float64           { return a * b }
func (Float) Scale(k float64, a float64) float64 { return k * a }
func (Float) Shift(a float64, k float64) float64 { return a + k }
func (Float) Sin(a float64) float64              { return math.Sin(a) }
func (Float) Cos(a float64) float64              { return math.Cos(a) }
func (Float) Atan(a float64) float64             { return math.Atan(a) }

// Values extracts the plain values of xs.
func Values[T any](ar Arith[T], xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = ar.Value(x)
	}
	return out
}
