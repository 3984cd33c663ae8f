package solver

import "math"

// box holds the variable bounds with infinite sides stored as ±Inf, so
// projection never has to special-case them.
type box struct {
	lo, hi []float64
}

func newBox(lower, upper []float64) box {
	b := box{lo: make([]float64, len(lower)), hi: make([]float64, len(upper))}
	for i := range lower {
		b.lo[i], b.hi[i] = lower[i], upper[i]
		if isInf(lower[i]) {
			b.lo[i] = math.Inf(-1)
		}
		if isInf(upper[i]) {
			b.hi[i] = math.Inf(1)
		}
	}
	return b
}

func (b box) clamp(i int, v float64) float64 {
	return math.Max(b.lo[i], math.Min(b.hi[i], v))
}

// project writes the closest point of the box to x into dst.
func (b box) project(dst, x []float64) {
	for i, v := range x {
		dst[i] = b.clamp(i, v)
	}
}

// projectedGradient returns the largest component of x - P(x - grad),
// which is zero exactly at a stationary point of the bound-constrained
// problem.
func (b box) projectedGradient(x, grad []float64) float64 {
	pg := 0.0
	for i, v := range x {
		pg = math.Max(pg, math.Abs(v-b.clamp(i, v-grad[i])))
	}
	return pg
}

// free appends to dst the variables a Newton step may move. A variable is
// held when it is fixed, or lies within eps of a bound with the gradient
// pushing it outward.
func (b box) free(dst []int, x, grad []float64, eps float64) []int {
	dst = dst[:0]
	for i, v := range x {
		switch {
		case b.lo[i] == b.hi[i]:
		case v <= b.lo[i]+eps && grad[i] > 0:
		case v >= b.hi[i]-eps && grad[i] < 0:
		default:
			dst = append(dst, i)
		}
	}
	return dst
}
