package ad

import "gonum.org/v1/gonum/num/dual"

// Dual propagates a single directional derivative alongside the value.
type Dual struct{}

func (Dual) Const(v float64) dual.Number                { return dual.Number{Real: v} }
func (Dual) Value(a dual.Number) float64                { return a.Real }
func (Dual) Add(a, b dual.Number) dual.Number           { return dual.Add(a, b) }
func (Dual) Sub(a, b dual.Number) dual.Number           { return dual.Sub(a, b) }
func (Dual) Mul(a, b dual.Number) dual.Number           { return dual.Mul(a, b) }
func (Dual) Scale(k float64, a dual.Number) dual.Number { return dual.Scale(k, a) }
func (Dual) Sin(a dual.Number) dual.Number              { return dual.Sin(a) }
func (Dual) Cos(a dual.Number) dual.Number              { return dual.Cos(a) }
func (Dual) Atan(a dual.Number) dual.Number             { return dual.Atan(a) }

func (Dual) Shift(a dual.Number, k float64) dual.Number {
	return dual.Number{Real: a.Real + k, Emag: a.Emag}
}

// Seed pairs each x[i] with the direction component d[i].
func Seed(x, d []float64) []dual.Number {
	out := make([]dual.Number, len(x))
	for i := range x {
		out[i] = dual.Number{Real: x[i], Emag: d[i]}
	}
	return out
}
