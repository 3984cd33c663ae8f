package mpc

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/mpcdrive/internal/solver"
)

// DerivativeReport compares the sparse derivatives used by the solver with
// two independent sources at one point.
type DerivativeReport struct {
	Vars, Rows, NonZeros int
	// GradientErr is the worst relative gap between the sparse gradient and
	// a central finite difference.
	GradientErr float64
	// DirectionalErr is the relative gap between grad·d and the dual-number
	// directional derivative of the objective.
	DirectionalErr float64
	// JacobianErr is the worst gap between J·d and the dual-number
	// directional derivative of each constraint row.
	JacobianErr float64
	// HessianErr is the worst relative gap between H·d, with every
	// multiplier set to one, and a central difference of the Lagrangian
	// gradient along d.
	HessianErr float64
}

// CheckDerivatives evaluates the problem for coeffs at x along direction d.
func CheckDerivatives(h Horizon, w Weights, coeffs []float64, x, d []float64) DerivativeReport {
	ev := NewEvaluator(h, w, coeffs)
	n, m := ev.Dims()

	grad := make([]float64, n)
	jac := solver.NewJacobian(m)
	ev.EvalDerivs(x, grad, make([]float64, m), jac)

	rep := DerivativeReport{Vars: n, Rows: m, NonZeros: jac.NonZeros()}

	f := func(x []float64) float64 { return ev.Eval(x, make([]float64, m)) }
	want := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central})
	for i := range grad {
		rep.GradientErr = math.Max(rep.GradientErr, math.Abs(grad[i]-want[i])/math.Max(1, math.Abs(want[i])))
	}

	_, df, _, dg := ev.Directional(x, d)
	rep.DirectionalErr = math.Abs(floats.Dot(grad, d)-df) / math.Max(1, math.Abs(df))

	row := make([]float64, n)
	for i := 0; i < m; i++ {
		jac.DenseRow(row, i)
		rep.JacobianErr = math.Max(rep.JacobianErr, math.Abs(floats.Dot(row, d)-dg[i]))
	}

	lambda := make([]float64, m)
	for i := range lambda {
		lambda[i] = 1
	}
	hess := mat.NewSymDense(n, nil)
	ev.Hessian(x, 1, lambda, hess)
	var hd mat.VecDense
	hd.MulVec(hess, mat.NewVecDense(n, d))

	lagGrad := func(at []float64) []float64 {
		out := make([]float64, n)
		j := solver.NewJacobian(m)
		ev.EvalDerivs(at, out, make([]float64, m), j)
		j.MulTransAdd(out, lambda)
		return out
	}
	const step = 1e-6
	xp := append([]float64(nil), x...)
	xm := append([]float64(nil), x...)
	floats.AddScaled(xp, step, d)
	floats.AddScaled(xm, -step, d)
	gp, gm := lagGrad(xp), lagGrad(xm)
	for i := range gp {
		diff := (gp[i] - gm[i]) / (2 * step)
		rep.HessianErr = math.Max(rep.HessianErr, math.Abs(hd.AtVec(i)-diff)/math.Max(1, math.Abs(diff)))
	}
	return rep
}
