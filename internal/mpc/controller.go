package mpc

import (
	"fmt"
	"time"

	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/vehicle"
	"go.uber.org/zap"
)

// Controller solves one horizon per call. It holds only its configuration,
// so separate instances may run on separate goroutines; a single instance
// must not be called concurrently with itself.
type Controller struct {
	h      Horizon
	w      Weights
	s      solver.Solver
	opts   solver.Options
	logger *zap.SugaredLogger
}

// New validates h. A nil solver selects the augmented Lagrangian backend
// and a nil logger discards output.
func New(h Horizon, w Weights, s solver.Solver, logger *zap.SugaredLogger) (*Controller, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		s = solver.NewALM()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := solver.DefaultOptions()
	if h.Budget > 0 {
		opts.Budget = h.Budget
	}

	return &Controller{h: h, w: w, s: s, opts: opts, logger: logger}, nil
}

// WithOptions returns a copy of the controller using opts for every solve.
func (c *Controller) WithOptions(opts solver.Options) *Controller {
	cp := *c
	cp.opts = opts
	return &cp
}

func (c *Controller) Horizon() Horizon { return c.h }
func (c *Controller) Weights() Weights { return c.w }

// Result is the outcome of one solve.
type Result struct {
	Steering float64
	Throttle float64
	// X and Y hold the predicted positions for steps 1..N-1.
	X, Y []float64
	// States is the full predicted trajectory, step 0 included.
	States []vehicle.State[float64]
	// SteerPlan and AccelPlan are the solved actuator trajectories.
	SteerPlan  []float64
	AccelPlan  []float64
	Status     solver.Status
	Cost       float64
	Violation  float64
	Iterations int
	Elapsed    time.Duration
}

// Flat returns [steer, accel, x1, y1, ..., x_{N-1}, y_{N-1}].
func (r *Result) Flat() []float64 {
	out := make([]float64, 0, 2+2*len(r.X))
	out = append(out, r.Steering, r.Throttle)
	for i := range r.X {
		out = append(out, r.X[i], r.Y[i])
	}
	return out
}

// Solve computes the commands for the given state against the reference
// curve. The result is the solver's stopping point as is; running out of
// budget is not an error and shows in Status and Violation.
func (c *Controller) Solve(state vehicle.State[float64], coeffs reference.Coeffs) (*Result, error) {
	if len(coeffs) != reference.Degree+1 {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCoeffs, len(coeffs), reference.Degree+1)
	}
	coeffs = coeffs.Clone()

	p := Build(c.h, state)
	ev := NewEvaluator(c.h, c.w, coeffs)

	sol, err := c.s.Solve(p, ev, c.opts)
	if err != nil {
		return nil, &SolveError{Speed: state.V, CTE: state.CTE, EPsi: state.EPsi, Wrapped: err}
	}

	res := c.extract(sol.X)
	res.Status = sol.Status
	res.Cost = sol.Objective
	res.Violation = sol.Violation
	res.Iterations = sol.Iterations
	res.Elapsed = sol.Elapsed

	log := c.logger.Debugw
	if sol.Status != solver.Converged {
		log = c.logger.Warnw
	}
	log("mpc solve",
		"solver", c.s.Name(),
		"status", sol.Status,
		"cost", res.Cost,
		"violation", res.Violation,
		"iterations", sol.Iterations,
		"elapsed", sol.Elapsed,
		"steer", res.Steering,
		"throttle", res.Throttle,
	)

	return res, nil
}

func (c *Controller) extract(x []float64) *Result {
	l := c.h.Layout()
	v := NewView(l, x)
	n := c.h.Steps

	res := &Result{
		Steering:  v.Steer(0),
		Throttle:  v.Accel(0),
		X:         make([]float64, n-1),
		Y:         make([]float64, n-1),
		States:    make([]vehicle.State[float64], n),
		SteerPlan: make([]float64, n-1),
		AccelPlan: make([]float64, n-1),
	}
	for t := 0; t < n; t++ {
		res.States[t] = v.State(t)
		if t > 0 {
			res.X[t-1] = v.At(BlockX, t)
			res.Y[t-1] = v.At(BlockY, t)
		}
		if t < n-1 {
			res.SteerPlan[t] = v.Steer(t)
			res.AccelPlan[t] = v.Accel(t)
		}
	}
	return res
}
