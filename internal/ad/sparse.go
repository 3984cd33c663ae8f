package ad

import "math"

// Sparse is a value together with its gradient over the independent
// variables, stored as parallel index/partial slices. Idx is strictly
// increasing.
type Sparse struct {
	V   float64
	Idx []int
	D   []float64
}

// Var returns the independent variable i holding value v.
func Var(i int, v float64) Sparse {
	return Sparse{V: v, Idx: []int{i}, D: []float64{1}}
}

// Vars seeds every entry of x as its own independent variable.
func Vars(x []float64) []Sparse {
	out := make([]Sparse, len(x))
	for i, v := range x {
		out[i] = Var(i, v)
	}
	return out
}

// Partial returns the derivative with respect to variable i.
func (s Sparse) Partial(i int) float64 {
	lo, hi := 0, len(s.Idx)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.Idx[mid] == i:
			return s.D[mid]
		case s.Idx[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// AddTo scatters k times the gradient into the dense vector dst.
func (s Sparse) AddTo(dst []float64, k float64) {
	for j, i := range s.Idx {
		dst[i] += k * s.D[j]
	}
}

// SparseArith implements Arith over Sparse.
type SparseArith struct{}

func (SparseArith) Const(v float64) Sparse { return Sparse{V: v} }
func (SparseArith) Value(a Sparse) float64 { return a.V }

func (SparseArith) Add(a, b Sparse) Sparse {
	idx, d := combine(a, 1, b, 1)
	return Sparse{V: a.V + b.V, Idx: idx, D: d}
}

func (SparseArith) Sub(a, b Sparse) Sparse {
	idx, d := combine(a, 1, b, -1)
	return Sparse{V: a.V - b.V, Idx: idx, D: d}
}

func (SparseArith) Mul(a, b Sparse) Sparse {
	idx, d := combine(a, b.V, b, a.V)
	return Sparse{V: a.V * b.V, Idx: idx, D: d}
}

func (SparseArith) Scale(k float64, a Sparse) Sparse {
	return chain(k*a.V, k, a)
}

func (SparseArith) Shift(a Sparse, k float64) Sparse {
	return Sparse{V: a.V + k, Idx: a.Idx, D: a.D}
}

func (SparseArith) Sin(a Sparse) Sparse {
	return chain(math.Sin(a.V), math.Cos(a.V), a)
}

func (SparseArith) Cos(a Sparse) Sparse {
	return chain(math.Cos(a.V), -math.Sin(a.V), a)
}

func (SparseArith) Atan(a Sparse) Sparse {
	return chain(math.Atan(a.V), 1/(1+a.V*a.V), a)
}

// chain applies a scalar function with value v and derivative dv to a.
func chain(v, dv float64, a Sparse) Sparse {
	if len(a.Idx) == 0 {
		return Sparse{V: v}
	}
	d := make([]float64, len(a.D))
	for i, p := range a.D {
		d[i] = dv * p
	}
	return Sparse{V: v, Idx: a.Idx, D: d}
}

// combine merges alpha*a.D and beta*b.D over the union of their indices.
func combine(a Sparse, alpha float64, b Sparse, beta float64) ([]int, []float64) {
	if len(b.Idx) == 0 {
		s := chain(0, alpha, a)
		return s.Idx, s.D
	}
	if len(a.Idx) == 0 {
		s := chain(0, beta, b)
		return s.Idx, s.D
	}

	idx := make([]int, 0, len(a.Idx)+len(b.Idx))
	d := make([]float64, 0, len(a.Idx)+len(b.Idx))
	i, j := 0, 0
	for i < len(a.Idx) && j < len(b.Idx) {
		switch {
		case a.Idx[i] == b.Idx[j]:
			idx = append(idx, a.Idx[i])
			d = append(d, alpha*a.D[i]+beta*b.D[j])
			i++
			j++
		case a.Idx[i] < b.Idx[j]:
			idx = append(idx, a.Idx[i])
			d = append(d, alpha*a.D[i])
			i++
		default:
			idx = append(idx, b.Idx[j])
			d = append(d, beta*b.D[j])
			j++
		}
	}
	for ; i < len(a.Idx); i++ {
		idx = append(idx, a.Idx[i])
		d = append(d, alpha*a.D[i])
	}
	for ; j < len(b.Idx); j++ {
		idx = append(idx, b.Idx[j])
		d = append(d, beta*b.D[j])
	}
	return idx, d
}
