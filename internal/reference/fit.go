package reference

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrTooFewPoints indicates fewer points than the fit degree requires.
	ErrTooFewPoints = errors.New("reference: not enough points for polynomial fit")

	// ErrLengthMismatch indicates x and y slices of different length.
	ErrLengthMismatch = errors.New("reference: x and y lengths differ")

	// ErrDegenerate indicates a singular or non-finite least squares solution.
	ErrDegenerate = errors.New("reference: degenerate polynomial fit")
)

// Fit returns the least squares polynomial of the given order through
// (xs[i], ys[i]).
func Fit(xs, ys []float64, order int) (Coeffs, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if order < 0 || len(xs) < order+1 {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewPoints, len(xs), order+1)
	}

	if n := distinct(xs); n < order+1 {
		return nil, fmt.Errorf("%w: only %d distinct x values", ErrDegenerate, n)
	}

	vander := mat.NewDense(len(xs), order+1, nil)
	for i, x := range xs {
		p := 1.0
		for j := 0; j <= order; j++ {
			vander.Set(i, j, p)
			p *= x
		}
	}

	var qr mat.QR
	qr.Factorize(vander)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, mat.NewDense(len(ys), 1, append([]float64(nil), ys...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	c := make(Coeffs, order+1)
	for j := range c {
		c[j] = sol.At(j, 0)
	}
	if !c.IsFinite() {
		return nil, ErrDegenerate
	}
	return c, nil
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
