package mpc

import (
	"errors"
	"testing"

	"github.com/san-kum/mpcdrive/internal/ad"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

func TestLayoutOffsets(t *testing.T) {
	l := NewLayout(20)

	if l.Len() != 6*20+2*19 {
		t.Errorf("Len() = %d, want %d", l.Len(), 6*20+2*19)
	}
	if l.Rows() != 120 {
		t.Errorf("Rows() = %d, want 120", l.Rows())
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"x start", l.State(BlockX, 0), 0},
		{"y start", l.State(BlockY, 0), 20},
		{"epsi end", l.State(BlockEPsi, 19), 119},
		{"delta start", l.Actuator(Steer, 0), 120},
		{"a start", l.Actuator(Accel, 0), 139},
		{"a end", l.Actuator(Accel, 18), 157},
		{"cte row", l.Row(BlockCTE, 3), 83},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestViewStateRoundTrip(t *testing.T) {
	l := NewLayout(5)
	x := make([]float64, l.Len())
	v := NewView(l, x)

	s := vehicle.State[float64]{X: 1, Y: 2, Psi: 3, V: 4, CTE: 5, EPsi: 6}
	v.SetState(3, s)
	if got := v.State(3); got != s {
		t.Errorf("State(3) = %+v, want %+v", got, s)
	}
	if x[l.State(BlockV, 3)] != 4 {
		t.Error("SetState wrote to the wrong slot")
	}
}

func TestActuationIndex(t *testing.T) {
	tests := []struct {
		t, delay int
		want     int
		ok       bool
	}{
		{0, 1, 0, false},
		{1, 1, 0, true},
		{2, 1, 0, true},
		{3, 1, 1, true},
		{19, 1, 17, true},
		{1, 0, 0, true},
		{5, 0, 4, true},
		{5, 2, 2, true},
		{2, 3, 0, true},
	}

	for _, tt := range tests {
		got, ok := ActuationIndex(tt.t, tt.delay)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ActuationIndex(%d, %d) = (%d, %v), want (%d, %v)",
				tt.t, tt.delay, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConstraintsUseDelayedActuation(t *testing.T) {
	h := DefaultHorizon()
	l := h.Layout()
	coeffs := reference.Coeffs{0.3, 0.1, 0, 0}

	x := make([]float64, l.Len())
	for i := range x {
		x[i] = 0.01 * float64(i%7)
	}
	base := make([]float64, l.Rows())
	Constraints[float64](ad.Float{}, h, coeffs, NewView(l, x), base)

	// Steering at step 1 first acts on the transition into step 3.
	x[l.Actuator(Steer, 1)] += 0.1
	moved := make([]float64, l.Rows())
	Constraints[float64](ad.Float{}, h, coeffs, NewView(l, x), moved)

	for k := 0; k < h.Steps; k++ {
		changed := moved[l.Row(BlockPsi, k)] != base[l.Row(BlockPsi, k)]
		if want := k == 3; changed != want {
			t.Errorf("psi row at step %d changed=%v, want %v", k, changed, want)
		}
	}
}

func TestBuild(t *testing.T) {
	h := DefaultHorizon()
	l := h.Layout()
	s := vehicle.State[float64]{V: 12, CTE: 0.5, EPsi: -0.1}

	p := Build(h, s)

	if len(p.X0) != l.Len() || len(p.GLower) != l.Rows() {
		t.Fatalf("wrong sizes: x0=%d g=%d", len(p.X0), len(p.GLower))
	}
	if p.X0[l.State(BlockV, 0)] != 12 || p.X0[l.State(BlockV, 1)] != 0 {
		t.Error("start vector should hold the state at step 0 and zeros after")
	}
	if i := l.State(BlockV, 0); p.Lower[i] != 12 || p.Upper[i] != 12 {
		t.Errorf("step 0 speed bounds = [%v, %v], want fixed at 12", p.Lower[i], p.Upper[i])
	}
	if p.Lower[l.State(BlockX, 4)] > -1e19 || p.Upper[l.State(BlockCTE, 4)] < 1e19 {
		t.Error("state variables should be unbounded")
	}
	if p.Lower[l.Actuator(Steer, 0)] != -0.436332 || p.Upper[l.Actuator(Steer, 18)] != 0.436332 {
		t.Error("steering bounds wrong")
	}
	if p.Lower[l.Actuator(Accel, 5)] != -1 || p.Upper[l.Actuator(Accel, 5)] != 1 {
		t.Error("acceleration bounds wrong")
	}

	r := l.Row(BlockCTE, 0)
	if p.GLower[r] != 0.5 || p.GUpper[r] != 0.5 {
		t.Errorf("cte pin = [%v, %v], want 0.5", p.GLower[r], p.GUpper[r])
	}
	if p.GLower[l.Row(BlockY, 5)] != 0 || p.GUpper[l.Row(BlockY, 5)] != 0 {
		t.Error("dynamics rows should be bounded to zero")
	}
}

func TestHorizonValidate(t *testing.T) {
	mod := func(f func(*Horizon)) Horizon {
		h := DefaultHorizon()
		f(&h)
		return h
	}

	tests := []struct {
		name string
		h    Horizon
		ok   bool
	}{
		{"default", DefaultHorizon(), true},
		{"no delay", mod(func(h *Horizon) { h.DelaySteps = 0 }), true},
		{"short", mod(func(h *Horizon) { h.Steps = 2 }), false},
		{"zero dt", mod(func(h *Horizon) { h.Dt = 0 }), false},
		{"zero lf", mod(func(h *Horizon) { h.Lf = 0 }), false},
		{"delay too long", mod(func(h *Horizon) { h.DelaySteps = 19 }), false},
		{"negative delay", mod(func(h *Horizon) { h.DelaySteps = -1 }), false},
		{"no steering", mod(func(h *Horizon) { h.SteerLimit = 0 }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.h.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok want %v", err, tt.ok)
			}
		})
	}
}

func TestWeightsWith(t *testing.T) {
	base := DefaultWeights()
	for _, name := range WeightNames() {
		w, err := base.With(name, 7)
		if err != nil {
			t.Fatalf("With(%q): %v", name, err)
		}
		if w == base {
			t.Errorf("With(%q) left weights unchanged", name)
		}
	}

	w, _ := base.With("steer_rate", 3)
	if w.SteerRate != 3 || base.SteerRate != 100 {
		t.Errorf("With must copy: got %v, base %v", w.SteerRate, base.SteerRate)
	}

	if _, err := base.With("bogus", 1); !errors.Is(err, ErrWeight) {
		t.Errorf("expected ErrWeight, got %v", err)
	}
	if _, err := base.With("cte", -1); !errors.Is(err, ErrWeight) {
		t.Errorf("expected ErrWeight for negative weight, got %v", err)
	}
}
