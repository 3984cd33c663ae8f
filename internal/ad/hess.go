package ad

import (
	"math"
	"slices"
)

// Entry is one element of a symmetric matrix, stored in the upper triangle
// (I <= J).
type Entry struct {
	I, J int
	V    float64
}

// Hess extends Sparse with the second derivatives. H is sorted by (I, J)
// and holds each position at most once.
type Hess struct {
	Sparse
	H []Entry
}

// HessVars seeds every entry of x as its own independent variable.
func HessVars(x []float64) []Hess {
	out := make([]Hess, len(x))
	for i, v := range x {
		out[i] = Hess{Sparse: Var(i, v)}
	}
	return out
}

// EachEntry calls fn for every stored second derivative, scaled by k.
func (h Hess) EachEntry(k float64, fn func(i, j int, v float64)) {
	for _, e := range h.H {
		fn(e.I, e.J, k*e.V)
	}
}

// HessArith implements Arith over Hess: forward mode carrying value,
// gradient and Hessian.
type HessArith struct{}

func (HessArith) Const(v float64) Hess { return Hess{Sparse: Sparse{V: v}} }
func (HessArith) Value(a Hess) float64 { return a.V }

func (HessArith) Add(a, b Hess) Hess {
	return Hess{Sparse: SparseArith{}.Add(a.Sparse, b.Sparse), H: mergeEntries(a.H, 1, b.H, 1)}
}

func (HessArith) Sub(a, b Hess) Hess {
	return Hess{Sparse: SparseArith{}.Sub(a.Sparse, b.Sparse), H: mergeEntries(a.H, 1, b.H, -1)}
}

// Mul uses d2(ab) = b d2a + a d2b + da db' + db da'.
func (HessArith) Mul(a, b Hess) Hess {
	h := mergeEntries(a.H, b.V, b.H, a.V)
	return Hess{
		Sparse: SparseArith{}.Mul(a.Sparse, b.Sparse),
		H:      mergeEntries(h, 1, crossEntries(a.Sparse, b.Sparse), 1),
	}
}

func (HessArith) Scale(k float64, a Hess) Hess {
	return Hess{Sparse: SparseArith{}.Scale(k, a.Sparse), H: mergeEntries(a.H, k, nil, 0)}
}

func (HessArith) Shift(a Hess, k float64) Hess {
	return Hess{Sparse: SparseArith{}.Shift(a.Sparse, k), H: a.H}
}

func (HessArith) Sin(a Hess) Hess {
	s, c := math.Sincos(a.V)
	return unary(a, s, c, -s)
}

func (HessArith) Cos(a Hess) Hess {
	s, c := math.Sincos(a.V)
	return unary(a, c, -s, -c)
}

func (HessArith) Atan(a Hess) Hess {
	d := 1 / (1 + a.V*a.V)
	return unary(a, math.Atan(a.V), d, -2*a.V*d*d)
}

// unary applies a scalar function with value v, first derivative d1 and
// second derivative d2: d2 f(a) = d1 d2a + d2 da da'.
func unary(a Hess, v, d1, d2 float64) Hess {
	return Hess{
		Sparse: chain(v, d1, a.Sparse),
		H:      mergeEntries(a.H, d1, outerEntries(a.Sparse, d2), 1),
	}
}

// outerEntries returns the upper triangle of k da da'. Idx is sorted, so
// the result is too.
func outerEntries(a Sparse, k float64) []Entry {
	if k == 0 || len(a.Idx) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(a.Idx)*(len(a.Idx)+1)/2)
	for p := range a.Idx {
		for q := p; q < len(a.Idx); q++ {
			out = append(out, Entry{I: a.Idx[p], J: a.Idx[q], V: k * a.D[p] * a.D[q]})
		}
	}
	return out
}

// crossEntries returns the upper triangle of da db' + db da'.
func crossEntries(a, b Sparse) []Entry {
	if len(a.Idx) == 0 || len(b.Idx) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(a.Idx)*len(b.Idx))
	for p, i := range a.Idx {
		for q, j := range b.Idx {
			v := a.D[p] * b.D[q]
			lo, hi := min(i, j), max(i, j)
			if lo == hi {
				v *= 2
			}
			out = append(out, Entry{I: lo, J: hi, V: v})
		}
	}
	slices.SortFunc(out, compareEntries)

	// fold repeated positions
	k := 0
	for _, e := range out {
		if k > 0 && out[k-1].I == e.I && out[k-1].J == e.J {
			out[k-1].V += e.V
			continue
		}
		out[k] = e
		k++
	}
	return out[:k]
}

func compareEntries(a, b Entry) int {
	switch {
	case a.I != b.I:
		return a.I - b.I
	default:
		return a.J - b.J
	}
}

// mergeEntries returns alpha*a + beta*b over the union of positions.
func mergeEntries(a []Entry, alpha float64, b []Entry, beta float64) []Entry {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := compareEntries(a[i], b[j]); {
		case c == 0:
			out = append(out, Entry{I: a[i].I, J: a[i].J, V: alpha*a[i].V + beta*b[j].V})
			i++
			j++
		case c < 0:
			out = append(out, Entry{I: a[i].I, J: a[i].J, V: alpha * a[i].V})
			i++
		default:
			out = append(out, Entry{I: b[j].I, J: b[j].J, V: beta * b[j].V})
			j++
		}
	}
	for ; i < len(a); i++ {
		out = append(out, Entry{I: a[i].I, J: a[i].J, V: alpha * a[i].V})
	}
	for ; j < len(b); j++ {
		out = append(out, Entry{I: b[j].I, J: b[j].J, V: beta * b[j].V})
	}
	return out
}
