package ad

import (
	"math"
	"testing"
)

func testFunc[T any](ar Arith[T], x, y T) T {
	// sin(x)*y + atan(x*y) - 3*cos(y) + 2
	a := ar.Mul(ar.Sin(x), y)
	b := ar.Atan(ar.Mul(x, y))
	c := ar.Scale(3, ar.Cos(y))
	return ar.Shift(ar.Sub(ar.Add(a, b), c), 2)
}

func analytic(x, y float64) (f, dfdx, dfdy float64) {
	f = math.Sin(x)*y + math.Atan(x*y) - 3*math.Cos(y) + 2
	den := 1 + x*x*y*y
	dfdx = math.Cos(x)*y + y/den
	dfdy = math.Sin(x) + x/den + 3*math.Sin(y)
	return
}

func TestFloat(t *testing.T) {
	got := testFunc[float64](Float{}, 0.7, -1.3)
	want, _, _ := analytic(0.7, -1.3)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Float value = %v, want %v", got, want)
	}
}

func TestSparseGradient(t *testing.T) {
	tests := []struct {
		x, y float64
	}{
		{0.7, -1.3},
		{0, 0},
		{2.5, 0.1},
		{-1, 4},
	}

	for _, tt := range tests {
		got := testFunc[Sparse](SparseArith{}, Var(0, tt.x), Var(3, tt.y))
		f, dx, dy := analytic(tt.x, tt.y)

		if math.Abs(got.V-f) > 1e-12 {
			t.Errorf("value(%v,%v) = %v, want %v", tt.x, tt.y, got.V, f)
		}
		if math.Abs(got.Partial(0)-dx) > 1e-12 {
			t.Errorf("d/dx(%v,%v) = %v, want %v", tt.x, tt.y, got.Partial(0), dx)
		}
		if math.Abs(got.Partial(3)-dy) > 1e-12 {
			t.Errorf("d/dy(%v,%v) = %v, want %v", tt.x, tt.y, got.Partial(3), dy)
		}
		if got.Partial(1) != 0 || got.Partial(2) != 0 {
			t.Error("untouched variables should have zero partials")
		}
	}
}

func TestSparseIndicesSorted(t *testing.T) {
	ar := SparseArith{}
	s := ar.Add(ar.Mul(Var(7, 1), Var(2, 2)), ar.Sub(Var(5, 3), Var(2, 1)))

	want := []int{2, 5, 7}
	if len(s.Idx) != len(want) {
		t.Fatalf("indices = %v, want %v", s.Idx, want)
	}
	for i := range want {
		if s.Idx[i] != want[i] {
			t.Fatalf("indices = %v, want %v", s.Idx, want)
		}
	}
	// d/dx2 of x7*x2 - x2 at x7=1 is 1 - 1 = 0; the slot is kept.
	if s.Partial(2) != 0 {
		t.Errorf("partial 2 = %v, want 0", s.Partial(2))
	}
}

func TestSparseConstants(t *testing.T) {
	ar := SparseArith{}
	c := ar.Mul(ar.Const(2), ar.Const(3))
	if c.V != 6 || len(c.Idx) != 0 {
		t.Errorf("constant product = %+v", c)
	}

	x := ar.Mul(ar.Const(4), Var(1, 2))
	if x.Partial(1) != 4 {
		t.Errorf("d(4x)/dx = %v, want 4", x.Partial(1))
	}
}

func TestAddTo(t *testing.T) {
	ar := SparseArith{}
	s := ar.Add(Var(0, 1), ar.Scale(2, Var(2, 1)))
	dst := make([]float64, 3)
	s.AddTo(dst, 0.5)
	if dst[0] != 0.5 || dst[1] != 0 || dst[2] != 1 {
		t.Errorf("AddTo = %v", dst)
	}
}

func TestDualDirectional(t *testing.T) {
	x, y := 0.4, 1.1
	d := []float64{0.3, -2}
	in := Seed([]float64{x, y}, d)

	got := testFunc(Dual{}, in[0], in[1])
	f, dx, dy := analytic(x, y)

	if math.Abs(got.Real-f) > 1e-12 {
		t.Errorf("value = %v, want %v", got.Real, f)
	}
	want := dx*d[0] + dy*d[1]
	if math.Abs(got.Emag-want) > 1e-12 {
		t.Errorf("directional derivative = %v, want %v", got.Emag, want)
	}
}

func hessAt(h Hess, i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	for _, e := range h.H {
		if e.I == i && e.J == j {
			return e.V
		}
	}
	return 0
}

func TestHessSecondDerivatives(t *testing.T) {
	tests := []struct {
		x, y float64
	}{
		{0.7, -1.3},
		{0, 0},
		{2.5, 0.1},
		{-1, 4},
	}

	ar := HessArith{}
	for _, tt := range tests {
		vars := HessVars([]float64{tt.x, 0, 0, tt.y})
		got := testFunc[Hess](ar, vars[0], vars[3])

		f, dx, dy := analytic(tt.x, tt.y)
		u := tt.x * tt.y
		den := 1 + u*u
		fxx := -math.Sin(tt.x)*tt.y - 2*u*tt.y*tt.y/(den*den)
		fyy := -2*u*tt.x*tt.x/(den*den) + 3*math.Cos(tt.y)
		fxy := math.Cos(tt.x) + 1/den - 2*u*u/(den*den)

		if math.Abs(got.V-f) > 1e-12 || math.Abs(got.Partial(0)-dx) > 1e-12 || math.Abs(got.Partial(3)-dy) > 1e-12 {
			t.Errorf("first order at (%v,%v) disagrees with the sparse gradient", tt.x, tt.y)
		}
		if v := hessAt(got, 0, 0); math.Abs(v-fxx) > 1e-12 {
			t.Errorf("fxx(%v,%v) = %v, want %v", tt.x, tt.y, v, fxx)
		}
		if v := hessAt(got, 3, 3); math.Abs(v-fyy) > 1e-12 {
			t.Errorf("fyy(%v,%v) = %v, want %v", tt.x, tt.y, v, fyy)
		}
		if v := hessAt(got, 0, 3); math.Abs(v-fxy) > 1e-12 {
			t.Errorf("fxy(%v,%v) = %v, want %v", tt.x, tt.y, v, fxy)
		}
		for _, e := range got.H {
			if e.I > e.J {
				t.Errorf("entry (%d,%d) below the diagonal", e.I, e.J)
			}
			if e.I == 1 || e.I == 2 || e.J == 1 || e.J == 2 {
				t.Errorf("untouched variable in entry (%d,%d)", e.I, e.J)
			}
		}
	}
}

func TestHessSquare(t *testing.T) {
	ar := HessArith{}
	x := HessVars([]float64{3, -2})

	sq := Square[Hess](ar, x[0])
	if len(sq.H) != 1 || sq.H[0] != (Entry{I: 0, J: 0, V: 2}) {
		t.Errorf("d2(x^2) = %+v, want [{0 0 2}]", sq.H)
	}

	// (x1 - x0)^2 has Hessian [[2 -2] [-2 2]]
	diff := Square[Hess](ar, ar.Sub(x[1], x[0]))
	want := []Entry{{0, 0, 2}, {0, 1, -2}, {1, 1, 2}}
	if len(diff.H) != len(want) {
		t.Fatalf("entries = %+v, want %+v", diff.H, want)
	}
	for i := range want {
		if diff.H[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, diff.H[i], want[i])
		}
	}

	var sum float64
	diff.EachEntry(0.5, func(i, j int, v float64) { sum += v })
	if sum != 1 {
		t.Errorf("EachEntry scaled sum = %v, want 1", sum)
	}
}
