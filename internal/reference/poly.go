package reference

import (
	"math"

	"github.com/san-kum/mpcdrive/internal/ad"
)

// Degree is the polynomial degree fitted to the waypoints ahead of the car.
const Degree = 3

// Coeffs holds polynomial coefficients in ascending powers of x.
type Coeffs []float64

// Clone returns an independent copy.
func (c Coeffs) Clone() Coeffs {
	out := make(Coeffs, len(c))
	copy(out, c)
	return out
}

// At evaluates the polynomial at x.
func (c Coeffs) At(x float64) float64 {
	return Eval[float64](ad.Float{}, c, x)
}

// SlopeAt evaluates the first derivative at x.
func (c Coeffs) SlopeAt(x float64) float64 {
	return Slope[float64](ad.Float{}, c, x)
}

// Heading returns the tangent direction of the curve at x.
func (c Coeffs) Heading(x float64) float64 {
	return math.Atan(c.SlopeAt(x))
}

// IsFinite reports whether every coefficient is a finite number.
func (c Coeffs) IsFinite() bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Eval evaluates the polynomial at x using Horner's scheme.
func Eval[T any](ar ad.Arith[T], c Coeffs, x T) T {
	if len(c) == 0 {
		return ar.Const(0)
	}
	acc := ar.Const(c[len(c)-1])
	for i := len(c) - 2; i >= 0; i-- {
		acc = ar.Shift(ar.Mul(acc, x), c[i])
	}
	return acc
}

// Slope evaluates the analytic first derivative of the polynomial at x.
func Slope[T any](ar ad.Arith[T], c Coeffs, x T) T {
	if len(c) < 2 {
		return ar.Const(0)
	}
	n := len(c) - 1
	acc := ar.Const(float64(n) * c[n])
	for i := n - 1; i >= 1; i-- {
		acc = ar.Shift(ar.Mul(acc, x), float64(i)*c[i])
	}
	return acc
}

// DesiredHeading is atan(f'(x)), the reference heading at x.
func DesiredHeading[T any](ar ad.Arith[T], c Coeffs, x T) T {
	return ar.Atan(Slope(ar, c, x))
}

// InitialErrors returns the cross-track and heading error of a car sitting at
// the origin of its own frame, pointing along +x.
func InitialErrors(c Coeffs) (cte, epsi float64) {
	if len(c) > 0 {
		cte = c[0]
	}
	if len(c) > 1 {
		epsi = -math.Atan(c[1])
	}
	return cte, epsi
}
