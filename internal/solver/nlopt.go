//go:build nlopt

package solver

import (
	"fmt"
	"math"
	"time"

	"github.com/go-nlopt/nlopt"
	"go.uber.org/multierr"
)

// SLSQP runs nlopt's sequential least-squares QP. Equal constraint bounds
// become equality constraints, finite one-sided bounds inequalities.
type SLSQP struct{}

func NewSLSQP() (Solver, error) {
	return &SLSQP{}, nil
}

func (s *SLSQP) Name() string { return "slsqp" }

func (s *SLSQP) Solve(p *Problem, ev Evaluator, opts Options) (*Solution, error) {
	start := time.Now()
	opts = opts.withDefaults()

	n, m := ev.Dims()
	if err := p.Validate(n, m); err != nil {
		return nil, err
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return nil, fmt.Errorf("solver: nlopt creation: %w", err)
	}
	defer opt.Destroy()

	cache := newEvalCache(ev, n, m)
	eqRows, ineqRows := splitRows(p)

	objective := func(x, gradient []float64) float64 {
		cache.at(x)
		if len(gradient) > 0 {
			copy(gradient, cache.grad)
		}
		return cache.f
	}
	equality := func(result, x, gradient []float64) {
		cache.at(x)
		for k, r := range eqRows {
			result[k] = cache.g[r.row] - r.bound
			if len(gradient) > 0 {
				cache.jac.DenseRow(gradient[k*n:(k+1)*n], r.row)
			}
		}
	}
	inequality := func(result, x, gradient []float64) {
		cache.at(x)
		for k, r := range ineqRows {
			result[k] = r.sign * (cache.g[r.row] - r.bound)
			if len(gradient) > 0 {
				row := gradient[k*n : (k+1)*n]
				cache.jac.DenseRow(row, r.row)
				if r.sign < 0 {
					for j := range row {
						row[j] = -row[j]
					}
				}
			}
		}
	}

	tol := func(k int) []float64 {
		t := make([]float64, k)
		for i := range t {
			t[i] = opts.ConstraintTolerance
		}
		return t
	}

	err = multierr.Combine(
		opt.SetLowerBounds(nloptBounds(p.Lower)),
		opt.SetUpperBounds(nloptBounds(p.Upper)),
		opt.SetMinObjective(objective),
		opt.SetXtolRel(opts.Tolerance),
		opt.SetFtolRel(opts.Tolerance),
		opt.SetMaxEval(10*opts.MaxIterations),
		opt.SetMaxTime(opts.Budget.Seconds()),
	)
	if len(eqRows) > 0 {
		err = multierr.Append(err, opt.AddEqualityMConstraint(equality, tol(len(eqRows))))
	}
	if len(ineqRows) > 0 {
		err = multierr.Append(err, opt.AddInequalityMConstraint(inequality, tol(len(ineqRows))))
	}
	if err != nil {
		return nil, fmt.Errorf("solver: nlopt setup: %w", err)
	}

	x0 := make([]float64, n)
	copy(x0, p.X0)
	for i := range x0 {
		x0[i] = math.Max(p.Lower[i], math.Min(p.Upper[i], x0[i]))
	}

	xs, _, optErr := opt.Optimize(x0)
	if xs == nil {
		xs = x0
	}

	g := make([]float64, m)
	f := ev.Eval(xs, g)
	sol := &Solution{
		X:          xs,
		Objective:  f,
		Violation:  Violation(g, p.GLower, p.GUpper),
		Iterations: cache.evals,
		Elapsed:    time.Since(start),
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		sol.Status = Failed
	case optErr == nil && sol.Violation <= opts.ConstraintTolerance && sol.Elapsed < opts.Budget:
		sol.Status = Converged
	default:
		sol.Status = BestEffort
	}
	return sol, nil
}

type boundRow struct {
	row   int
	bound float64
	sign  float64
}

// splitRows turns constraint ranges into nlopt's c(x) = 0 and c(x) <= 0
// forms.
func splitRows(p *Problem) (eq, ineq []boundRow) {
	for i := range p.GLower {
		lo, hi := p.GLower[i], p.GUpper[i]
		if lo == hi {
			eq = append(eq, boundRow{row: i, bound: lo, sign: 1})
			continue
		}
		if !isInf(hi) {
			ineq = append(ineq, boundRow{row: i, bound: hi, sign: 1})
		}
		if !isInf(lo) {
			ineq = append(ineq, boundRow{row: i, bound: lo, sign: -1})
		}
	}
	return eq, ineq
}

func nloptBounds(b []float64) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		switch {
		case v >= Infinity:
			out[i] = math.Inf(1)
		case v <= -Infinity:
			out[i] = math.Inf(-1)
		default:
			out[i] = v
		}
	}
	return out
}

// evalCache avoids re-evaluating the same point for the objective and each
// constraint group.
type evalCache struct {
	ev    Evaluator
	last  []float64
	valid bool
	f     float64
	grad  []float64
	g     []float64
	jac   *Jacobian
	evals int
}

func newEvalCache(ev Evaluator, n, m int) *evalCache {
	return &evalCache{
		ev:   ev,
		last: make([]float64, n),
		grad: make([]float64, n),
		g:    make([]float64, m),
		jac:  NewJacobian(m),
	}
}

func (c *evalCache) at(x []float64) {
	if c.valid && equalSlices(c.last, x) {
		return
	}
	c.f = c.ev.EvalDerivs(x, c.grad, c.g, c.jac)
	copy(c.last, x)
	c.valid = true
	c.evals++
}

func equalSlices(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
