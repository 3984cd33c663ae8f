package mpc

import (
	"github.com/san-kum/mpcdrive/internal/ad"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/solver"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dual"
)

// Evaluator binds a horizon, weights and one reference curve to the
// solver's evaluator contract.
type Evaluator struct {
	h      Horizon
	w      Weights
	coeffs reference.Coeffs
	l      Layout
}

var _ solver.HessianEvaluator = (*Evaluator)(nil)

func NewEvaluator(h Horizon, w Weights, coeffs reference.Coeffs) *Evaluator {
	return &Evaluator{h: h, w: w, coeffs: coeffs.Clone(), l: h.Layout()}
}

func (e *Evaluator) Dims() (int, int) { return e.l.Len(), e.l.Rows() }

func (e *Evaluator) Eval(x, g []float64) float64 {
	var ar ad.Float
	v := NewView(e.l, x)
	Constraints[float64](ar, e.h, e.coeffs, v, g)
	return Cost[float64](ar, e.h, e.w, v)
}

func (e *Evaluator) EvalDerivs(x, grad, g []float64, jac *solver.Jacobian) float64 {
	var ar ad.SparseArith
	v := NewView(e.l, ad.Vars(x))

	gs := make([]ad.Sparse, e.l.Rows())
	Constraints[ad.Sparse](ar, e.h, e.coeffs, v, gs)
	for i, r := range gs {
		g[i] = r.V
		jac.SetRow(i, r.Idx, r.D)
	}

	cost := Cost[ad.Sparse](ar, e.h, e.w, v)
	for i := range grad {
		grad[i] = 0
	}
	cost.AddTo(grad, 1)
	return cost.V
}

// Hessian writes the Hessian of sigma*f + sum(lambda_i*g_i) at x into h.
func (e *Evaluator) Hessian(x []float64, sigma float64, lambda []float64, h *mat.SymDense) {
	var ar ad.HessArith
	v := NewView(e.l, ad.HessVars(x))

	gs := make([]ad.Hess, e.l.Rows())
	Constraints[ad.Hess](ar, e.h, e.coeffs, v, gs)
	cost := Cost[ad.Hess](ar, e.h, e.w, v)

	h.Zero()
	add := func(i, j int, val float64) {
		h.SetSym(i, j, h.At(i, j)+val)
	}
	cost.EachEntry(sigma, add)
	for i, r := range gs {
		if lambda[i] != 0 {
			r.EachEntry(lambda[i], add)
		}
	}
}

// Directional evaluates the objective and constraints along direction d
// with dual numbers, returning values and directional derivatives.
func (e *Evaluator) Directional(x, d []float64) (f, df float64, g, dg []float64) {
	var ar ad.Dual
	v := NewView(e.l, ad.Seed(x, d))

	gs := make([]dual.Number, e.l.Rows())
	Constraints[dual.Number](ar, e.h, e.coeffs, v, gs)
	g = make([]float64, len(gs))
	dg = make([]float64, len(gs))
	for i, r := range gs {
		g[i], dg[i] = r.Real, r.Emag
	}

	cost := Cost[dual.Number](ar, e.h, e.w, v)
	return cost.Real, cost.Emag, g, dg
}
