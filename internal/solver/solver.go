package solver

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknown     = errors.New("solver: unknown backend")
	ErrUnavailable = errors.New("solver: backend not compiled in")
	ErrDimensions  = errors.New("solver: dimension mismatch")
)

// Infinity is the bound magnitude at and beyond which a bound is ignored.
const Infinity = 1e19

type Problem struct {
	X0     []float64
	Lower  []float64
	Upper  []float64
	GLower []float64
	GUpper []float64
}

// Validate checks that all vectors agree with the evaluator's dimensions.
func (p *Problem) Validate(n, m int) error {
	if len(p.X0) != n || len(p.Lower) != n || len(p.Upper) != n {
		return fmt.Errorf("%w: %d variables, x0=%d lower=%d upper=%d",
			ErrDimensions, n, len(p.X0), len(p.Lower), len(p.Upper))
	}
	if len(p.GLower) != m || len(p.GUpper) != m {
		return fmt.Errorf("%w: %d constraints, glower=%d gupper=%d",
			ErrDimensions, m, len(p.GLower), len(p.GUpper))
	}
	for i := range p.Lower {
		if p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("%w: variable %d has lower %g above upper %g",
				ErrDimensions, i, p.Lower[i], p.Upper[i])
		}
	}
	return nil
}

// Evaluator computes the objective and the constraint residuals g. EvalDerivs
// also fills the objective gradient and the constraint Jacobian.
type Evaluator interface {
	Dims() (n, m int)
	Eval(x, g []float64) float64
	EvalDerivs(x, grad, g []float64, jac *Jacobian) float64
}

// HessianEvaluator also supplies second derivatives. Hessian writes the
// Hessian of sigma*f + sum(lambda_i*g_i) at x into h.
type HessianEvaluator interface {
	Evaluator
	Hessian(x []float64, sigma float64, lambda []float64, h *mat.SymDense)
}

type Options struct {
	// Budget is the wall-clock limit for one solve.
	Budget        time.Duration
	MaxIterations int
	// Tolerance bounds the projected gradient of the Lagrangian, scaled by
	// the size of the objective gradient.
	Tolerance           float64
	ConstraintTolerance float64
}

func DefaultOptions() Options {
	return Options{
		Budget:              500 * time.Millisecond,
		MaxIterations:       300,
		Tolerance:           1e-6,
		ConstraintTolerance: 1e-6,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Budget <= 0 {
		o.Budget = d.Budget
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.ConstraintTolerance <= 0 {
		o.ConstraintTolerance = d.ConstraintTolerance
	}
	return o
}

type Status int

const (
	// Converged means the iterate is feasible and stationary within
	// tolerance.
	Converged Status = iota
	// BestEffort means a limit was hit, or the iterate is feasible but not
	// stationary; it is still returned.
	BestEffort
	// Failed means the returned point has a non-finite objective.
	Failed
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case BestEffort:
		return "best_effort"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type Solution struct {
	X         []float64
	Objective float64
	// Violation is the largest distance of a constraint residual from its
	// range.
	Violation  float64
	Status     Status
	Iterations int
	Elapsed    time.Duration
}

type Solver interface {
	Name() string
	Solve(p *Problem, ev Evaluator, opts Options) (*Solution, error)
}

var backends = map[string]func() (Solver, error){
	"alm":   func() (Solver, error) { return NewALM(), nil },
	"slsqp": func() (Solver, error) { return NewSLSQP() },
}

func New(name string) (Solver, error) {
	if name == "" {
		name = "alm"
	}
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return ctor()
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func isInf(b float64) bool {
	return b >= Infinity || b <= -Infinity
}

// Violation returns the largest distance of g from [gl, gu].
func Violation(g, gl, gu []float64) float64 {
	v := 0.0
	for i, gi := range g {
		if d := gi - project(gi, gl[i], gu[i]); d > v {
			v = d
		} else if -d > v {
			v = -d
		}
	}
	return v
}

// project clamps v into [lo, hi], ignoring infinite sides.
func project(v, lo, hi float64) float64 {
	if !isInf(lo) && v < lo {
		return lo
	}
	if !isInf(hi) && v > hi {
		return hi
	}
	return v
}
