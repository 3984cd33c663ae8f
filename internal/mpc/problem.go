package mpc

import (
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

// unbounded marks state variables as free; the solver treats it as infinite.
const unbounded = 1e19

// Build lays out the start vector, the variable bounds and the constraint
// bounds for one solve. Future steps start at zero and step 0 holds s.
// State variables after step 0 are unbounded.
func Build(h Horizon, s vehicle.State[float64]) *solver.Problem {
	l := h.Layout()
	n, m := l.Len(), l.Rows()

	p := &solver.Problem{
		X0:     make([]float64, n),
		Lower:  make([]float64, n),
		Upper:  make([]float64, n),
		GLower: make([]float64, m),
		GUpper: make([]float64, m),
	}

	NewView(l, p.X0).SetState(0, s)

	start := l.Actuator(Steer, 0)
	for i := 0; i < start; i++ {
		p.Lower[i], p.Upper[i] = -unbounded, unbounded
	}
	for t := 0; t < h.Steps-1; t++ {
		i := l.Actuator(Steer, t)
		p.Lower[i], p.Upper[i] = -h.SteerLimit, h.SteerLimit
		i = l.Actuator(Accel, t)
		p.Lower[i], p.Upper[i] = -h.AccelLimit, h.AccelLimit
	}

	// Step 0 is pinned twice: by its constraint rows and by fixing the
	// variables themselves, which the solver holds exactly.
	for b, val := range s.Slice() {
		r := l.Row(Block(b), 0)
		p.GLower[r], p.GUpper[r] = val, val
		i := l.State(Block(b), 0)
		p.Lower[i], p.Upper[i] = val, val
	}

	return p
}
