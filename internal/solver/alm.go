package solver

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ALM solves the problem with an augmented Lagrangian (Powell-Hestenes-
// Rockafellar form, two-sided constraint ranges). Each outer iteration
// minimizes
//
//	phi(x) = f(x) + mu/2 * dist(g(x) + lambda/mu, [gl, gu])^2
//
// over the variable box with projected Newton steps, then updates the
// multipliers. Second derivatives come from the evaluator when it
// implements HessianEvaluator and from a damped BFGS model otherwise.
type ALM struct {
	InitialPenalty float64
	MaxPenalty     float64
	PenaltyGrowth  float64
	MaxOuter       int
}

func NewALM() *ALM {
	return &ALM{
		InitialPenalty: 1e3,
		MaxPenalty:     1e10,
		PenaltyGrowth:  10,
		MaxOuter:       50,
	}
}

func (a *ALM) Name() string { return "alm" }

// innerStop says why a penalty subproblem ended.
type innerStop int

const (
	innerStationary innerStop = iota
	innerStalled
	innerLimited
	innerFailed
)

const (
	// activeWidth caps the distance from a bound within which a variable
	// pushed outward is held there.
	activeWidth  = 1e-3
	armijo       = 1e-4
	maxBacktrack = 40
)

func (a *ALM) Solve(p *Problem, ev Evaluator, opts Options) (*Solution, error) {
	start := time.Now()
	opts = opts.withDefaults()

	n, m := ev.Dims()
	if err := p.Validate(n, m); err != nil {
		return nil, err
	}

	st := newAlmState(p, ev, n, m, a.InitialPenalty)
	st.deadline = start.Add(opts.Budget)
	st.maxIter = opts.MaxIterations

	prevViol := math.Inf(1)
	converged := false

	for outer := 0; outer < a.MaxOuter; outer++ {
		stop := st.minimize(opts.Tolerance)
		if stop == innerLimited || stop == innerFailed {
			break
		}

		viol := Violation(st.g, p.GLower, p.GUpper)
		st.updateMultipliers()

		if viol <= opts.ConstraintTolerance {
			// The subproblem gradient is the Lagrangian gradient at the
			// updated multipliers, so a stationary subproblem is a KKT point.
			converged = stop == innerStationary
			break
		}
		if stop == innerStalled || viol > 0.25*prevViol {
			st.mu = math.Min(st.mu*a.PenaltyGrowth, a.MaxPenalty)
		}
		prevViol = viol
	}

	g := make([]float64, m)
	f := ev.Eval(st.x, g)

	sol := &Solution{
		X:          append([]float64(nil), st.x...),
		Objective:  f,
		Violation:  Violation(g, p.GLower, p.GUpper),
		Iterations: st.iterations,
		Elapsed:    time.Since(start),
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		sol.Status = Failed
	case converged && sol.Violation <= opts.ConstraintTolerance:
		sol.Status = Converged
	default:
		sol.Status = BestEffort
	}
	return sol, nil
}

// almState holds the iterate and the buffers for one solve.
type almState struct {
	ev     Evaluator
	hev    HessianEvaluator
	box    box
	gl, gu []float64
	lambda []float64
	mu     float64

	deadline   time.Time
	maxIter    int
	iterations int

	n          int
	x, trial   []float64
	f          float64
	grad, g    []float64
	w          []float64
	active     []bool
	gphi, d    []float64
	jac        *Jacobian
	lag        *mat.SymDense
	model      []float64
	freeIdx    []int
	chol       mat.Cholesky
	gTrial     []float64
	prevX      []float64
	prevGphi   []float64
	prevW      []float64
	havePrev   bool
	bfgsScaled bool
}

func newAlmState(p *Problem, ev Evaluator, n, m int, mu float64) *almState {
	s := &almState{
		ev:       ev,
		box:      newBox(p.Lower, p.Upper),
		gl:       p.GLower,
		gu:       p.GUpper,
		lambda:   make([]float64, m),
		mu:       mu,
		n:        n,
		x:        make([]float64, n),
		trial:    make([]float64, n),
		grad:     make([]float64, n),
		g:        make([]float64, m),
		w:        make([]float64, m),
		active:   make([]bool, m),
		gphi:     make([]float64, n),
		d:        make([]float64, n),
		jac:      NewJacobian(m),
		lag:      mat.NewSymDense(n, nil),
		model:    make([]float64, n*n),
		gTrial:   make([]float64, m),
		prevX:    make([]float64, n),
		prevGphi: make([]float64, n),
		prevW:    make([]float64, m),
	}
	if hev, ok := ev.(HessianEvaluator); ok {
		s.hev = hev
	} else {
		for i := 0; i < n; i++ {
			s.lag.SetSym(i, i, 1)
		}
	}
	s.box.project(s.x, p.X0)
	return s
}

// minimize runs projected Newton on phi at the current multipliers and
// penalty until the projected gradient drops below tol, scaled by the size
// of the objective gradient.
func (s *almState) minimize(tol float64) innerStop {
	for {
		if s.iterations >= s.maxIter || !time.Now().Before(s.deadline) {
			return innerLimited
		}

		phi := s.derivs()
		if math.IsNaN(phi) || math.IsInf(phi, 0) || floats.HasNaN(s.gphi) {
			return innerFailed
		}
		if s.hev == nil && s.havePrev {
			s.updateBFGS()
		}
		s.havePrev = false

		pg := s.box.projectedGradient(s.x, s.gphi)
		if pg <= tol*math.Max(1, floats.Norm(s.grad, math.Inf(1))) {
			return innerStationary
		}
		s.iterations++

		copy(s.prevX, s.x)
		copy(s.prevGphi, s.gphi)
		copy(s.prevW, s.w)

		s.freeIdx = s.box.free(s.freeIdx, s.x, s.gphi, math.Min(activeWidth, pg))
		if s.newtonDirection() && s.search(phi, true) {
			s.havePrev = true
			continue
		}

		// steepest descent, scaled to a unit largest component
		scale := 1 / math.Max(1, floats.Norm(s.gphi, math.Inf(1)))
		for i, gi := range s.gphi {
			s.d[i] = -scale * gi
		}
		if !s.search(phi, false) {
			return innerStalled
		}
		s.havePrev = true
	}
}

// derivs evaluates phi and its gradient at x, refreshing the shifted
// multipliers w and the set of rows that contribute curvature.
func (s *almState) derivs() float64 {
	s.f = s.ev.EvalDerivs(s.x, s.grad, s.g, s.jac)
	phi := s.f
	for i, gi := range s.g {
		var pen float64
		s.w[i], pen, s.active[i] = s.shifted(i, gi)
		phi += pen
	}
	copy(s.gphi, s.grad)
	s.jac.MulTransAdd(s.gphi, s.w)
	return phi
}

// value evaluates phi at x without derivatives.
func (s *almState) value(x []float64) float64 {
	phi := s.ev.Eval(x, s.gTrial)
	for i, gi := range s.gTrial {
		_, pen, _ := s.shifted(i, gi)
		phi += pen
	}
	return phi
}

// shifted returns the weight mu*(v - proj(v)) for v = g + lambda/mu, the
// penalty contribution of that row and whether the row is held at a bound.
func (s *almState) shifted(i int, gi float64) (w, pen float64, active bool) {
	v := gi + s.lambda[i]/s.mu
	pv := project(v, s.gl[i], s.gu[i])
	d := v - pv
	active = s.gl[i] == s.gu[i] || d != 0
	return s.mu * d, 0.5 * s.mu * d * d, active
}

func (s *almState) updateMultipliers() {
	for i, gi := range s.g {
		s.lambda[i], _, _ = s.shifted(i, gi)
	}
}

// newtonDirection solves the Newton system of phi over the free variables.
// The Lagrangian Hessian is shifted along the diagonal until it factors.
func (s *almState) newtonDirection() bool {
	for i := range s.d {
		s.d[i] = 0
	}
	free := s.freeIdx
	nf := len(free)
	if nf == 0 {
		return false
	}

	s.buildModel()

	data := make([]float64, nf*nf)
	base := make([]float64, nf)
	maxDiag := 0.0
	for a, i := range free {
		row := s.model[i*s.n:]
		for b, j := range free {
			data[a*nf+b] = row[j]
		}
		base[a] = row[i]
		maxDiag = math.Max(maxDiag, math.Abs(row[i]))
	}
	h := mat.NewSymDense(nf, data)

	rhs := mat.NewVecDense(nf, nil)
	for a, i := range free {
		rhs.SetVec(a, -s.gphi[i])
	}

	tau := 0.0
	for try := 0; try < 20; try++ {
		if s.chol.Factorize(h) {
			var step mat.VecDense
			if err := s.chol.SolveVecTo(&step, rhs); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return false
				}
			}
			if floats.HasNaN(step.RawVector().Data) {
				return false
			}
			for a, i := range free {
				s.d[i] = step.AtVec(a)
			}
			return true
		}
		if tau == 0 {
			tau = 1e-8 * math.Max(1, maxDiag)
		} else {
			tau *= 10
		}
		for a := range free {
			h.SetSym(a, a, base[a]+tau)
		}
	}
	return false
}

// buildModel fills model with the Hessian of phi: the Lagrangian Hessian
// at the shifted multipliers plus mu J'J over the held rows.
func (s *almState) buildModel() {
	n := s.n
	if s.hev != nil {
		s.hev.Hessian(s.x, 1, s.w, s.lag)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := s.lag.At(i, j)
			s.model[i*n+j] = v
			s.model[j*n+i] = v
		}
	}
	for r, cols := range s.jac.Cols {
		if !s.active[r] {
			continue
		}
		vals := s.jac.Vals[r]
		for a, ca := range cols {
			for b, cb := range cols {
				s.model[ca*n+cb] += s.mu * vals[a] * vals[b]
			}
		}
	}
}

// search backtracks along the projected path x(t) = P(x + t d) until phi
// shows sufficient decrease. A full Newton step whose change is lost in
// rounding is accepted so the final iterations can finish.
func (s *almState) search(phi float64, newton bool) bool {
	t := 1.0
	for k := 0; k < maxBacktrack; k++ {
		dec := 0.0
		moved := false
		for i, xi := range s.x {
			s.trial[i] = s.box.clamp(i, xi+t*s.d[i])
			if s.trial[i] != xi {
				moved = true
			}
			dec += s.gphi[i] * (s.trial[i] - xi)
		}
		if !moved {
			return false
		}
		v := s.value(s.trial)
		ok := v <= phi+armijo*dec
		if !ok && newton && k == 0 {
			ok = math.Abs(v-phi) <= 1e-12*math.Max(1, math.Abs(phi))
		}
		if ok && !math.IsNaN(v) {
			copy(s.x, s.trial)
			return true
		}
		t *= 0.5
	}
	return false
}

// updateBFGS folds the last step into the Lagrangian Hessian model with
// Powell's damping, which keeps it positive definite.
func (s *almState) updateBFGS() {
	n := s.n
	step := make([]float64, n)
	floats.SubTo(step, s.x, s.prevX)

	// gradient of the Lagrangian at the new point with the old multipliers
	y := append([]float64(nil), s.grad...)
	s.jac.MulTransAdd(y, s.prevW)
	floats.Sub(y, s.prevGphi)

	sy := floats.Dot(step, y)
	if !s.bfgsScaled && sy > 0 {
		yy := floats.Dot(y, y)
		for i := 0; i < n; i++ {
			s.lag.SetSym(i, i, yy/sy)
		}
		s.bfgsScaled = true
	}

	sv := mat.NewVecDense(n, step)
	var bs mat.VecDense
	bs.MulVec(s.lag, sv)
	sBs := mat.Dot(sv, &bs)
	if sBs <= 1e-12*floats.Dot(step, step) || sBs == 0 {
		return
	}

	theta := 1.0
	if sy < 0.2*sBs {
		theta = 0.8 * sBs / (sBs - sy)
	}
	r := make([]float64, n)
	for i := range r {
		r[i] = theta*y[i] + (1-theta)*bs.AtVec(i)
	}
	sr := floats.Dot(step, r)
	if sr <= 0 {
		return
	}
	s.lag.SymRankOne(s.lag, -1/sBs, &bs)
	s.lag.SymRankOne(s.lag, 1/sr, mat.NewVecDense(n, r))
}
