package mpc

import (
	"math"
	"testing"

	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/solver"
	"gonum.org/v1/gonum/diff/fd"
)

func testPoint(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.05*math.Sin(float64(i)) + 0.01*float64(i%5)
	}
	return x
}

func TestEvalDerivsMatchValues(t *testing.T) {
	h := DefaultHorizon()
	ev := NewEvaluator(h, DefaultWeights(), reference.Coeffs{0.4, 0.2, -0.01, 0.002})
	n, m := ev.Dims()
	x := testPoint(n)

	g1 := make([]float64, m)
	f1 := ev.Eval(x, g1)

	grad := make([]float64, n)
	g2 := make([]float64, m)
	jac := solver.NewJacobian(m)
	f2 := ev.EvalDerivs(x, grad, g2, jac)

	if math.Abs(f1-f2) > 1e-9*math.Max(1, math.Abs(f1)) {
		t.Errorf("objective differs: %v vs %v", f1, f2)
	}
	for i := range g1 {
		if math.Abs(g1[i]-g2[i]) > 1e-12 {
			t.Errorf("g[%d] differs: %v vs %v", i, g1[i], g2[i])
		}
	}
}

func TestGradientAgainstFiniteDifference(t *testing.T) {
	h := DefaultHorizon()
	ev := NewEvaluator(h, DefaultWeights(), reference.Coeffs{0.4, 0.2, -0.01, 0.002})
	n, m := ev.Dims()
	x := testPoint(n)

	grad := make([]float64, n)
	ev.EvalDerivs(x, grad, make([]float64, m), solver.NewJacobian(m))

	f := func(x []float64) float64 { return ev.Eval(x, make([]float64, m)) }
	want := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central})

	for i := range grad {
		tol := 1e-4 * math.Max(1, math.Abs(want[i]))
		if math.Abs(grad[i]-want[i]) > tol {
			t.Errorf("grad[%d] = %v, finite difference %v", i, grad[i], want[i])
		}
	}
}

func TestJacobianAgainstDual(t *testing.T) {
	h := DefaultHorizon()
	ev := NewEvaluator(h, DefaultWeights(), reference.Coeffs{-0.3, 0.1, 0.02, -0.001})
	n, m := ev.Dims()
	x := testPoint(n)

	jac := solver.NewJacobian(m)
	grad := make([]float64, n)
	ev.EvalDerivs(x, grad, make([]float64, m), jac)

	d := make([]float64, n)
	for i := range d {
		d[i] = math.Cos(float64(3 * i))
	}
	_, df, _, dg := ev.Directional(x, d)

	wantDf := 0.0
	for i := range grad {
		wantDf += grad[i] * d[i]
	}
	if math.Abs(df-wantDf) > 1e-8*math.Max(1, math.Abs(df)) {
		t.Errorf("directional objective %v, gradient dot %v", df, wantDf)
	}

	jd := make([]float64, m)
	for i := 0; i < m; i++ {
		for k, c := range jac.Cols[i] {
			jd[i] += jac.Vals[i][k] * d[c]
		}
		if math.Abs(jd[i]-dg[i]) > 1e-9 {
			t.Errorf("row %d: J d = %v, dual %v", i, jd[i], dg[i])
		}
	}
}

func TestJacobianSparsity(t *testing.T) {
	h := DefaultHorizon()
	ev := NewEvaluator(h, DefaultWeights(), reference.Coeffs{0, 0.1, 0, 0})
	n, m := ev.Dims()

	jac := solver.NewJacobian(m)
	ev.EvalDerivs(testPoint(n), make([]float64, n), make([]float64, m), jac)

	// Each dynamics row touches at most the six previous states, one next
	// state and the two delayed actuators.
	for i := 0; i < m; i++ {
		if len(jac.Cols[i]) > 9 {
			t.Errorf("row %d has %d entries", i, len(jac.Cols[i]))
		}
	}
	if jac.NonZeros() >= n*m/4 {
		t.Errorf("jacobian too dense: %d of %d", jac.NonZeros(), n*m)
	}
}

func TestCheckDerivatives(t *testing.T) {
	h := DefaultHorizon()
	n := h.Layout().Len()
	d := make([]float64, n)
	for i := range d {
		d[i] = math.Sin(float64(7 * i))
	}

	rep := CheckDerivatives(h, DefaultWeights(), reference.Coeffs{0.4, 0.2, -0.01, 0.002}, testPoint(n), d)

	if rep.Vars != n || rep.Rows != h.Layout().Rows() {
		t.Errorf("dims = %d x %d", rep.Vars, rep.Rows)
	}
	if rep.NonZeros == 0 {
		t.Error("empty jacobian")
	}
	if rep.GradientErr > 1e-4 {
		t.Errorf("gradient error %g", rep.GradientErr)
	}
	if rep.DirectionalErr > 1e-6 {
		t.Errorf("directional error %g", rep.DirectionalErr)
	}
	if rep.JacobianErr > 1e-9 {
		t.Errorf("jacobian error %g", rep.JacobianErr)
	}
	if rep.HessianErr > 1e-4 {
		t.Errorf("hessian error %g", rep.HessianErr)
	}
}
