package vehicle

import (
	"fmt"
	"math"

	"github.com/san-kum/mpcdrive/internal/sim"
)

// Bicycle is the continuous-time kinematic plant in the world frame used by
// the closed-loop simulator. State is [x, y, psi, v], control is
// [steering, acceleration].
type Bicycle struct {
	Lf         float64
	SteerLimit float64
	AccelLimit float64
	// AccelGain maps normalised throttle to m/s².
	AccelGain float64
}

func NewBicycle() *Bicycle {
	return &Bicycle{
		Lf:         Lf,
		SteerLimit: maxSteer,
		AccelLimit: 1.0,
		AccelGain:  1.0,
	}
}

// maxSteer is 25 degrees in radians.
const maxSteer = 0.436332

func (b *Bicycle) StateDim() int   { return 4 }
func (b *Bicycle) ControlDim() int { return 2 }

func (b *Bicycle) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	psi, v := x[2], x[3]

	delta, a := 0.0, 0.0
	if len(u) >= 2 {
		delta, a = u[0], u[1]
	}
	delta = clamp(delta, -b.SteerLimit, b.SteerLimit)
	a = clamp(a, -b.AccelLimit, b.AccelLimit) * b.AccelGain

	sin, cos := math.Sincos(psi)
	return sim.State{
		v * cos,
		v * sin,
		-v * delta / b.Lf,
		a,
	}
}

func (b *Bicycle) GetParams() map[string]float64 {
	return map[string]float64{
		"lf":          b.Lf,
		"steer_limit": b.SteerLimit,
		"accel_limit": b.AccelLimit,
		"accel_gain":  b.AccelGain,
	}
}

func (b *Bicycle) SetParam(name string, value float64) error {
	switch name {
	case "lf":
		b.Lf = value
	case "steer_limit":
		b.SteerLimit = value
	case "accel_limit":
		b.AccelLimit = value
	case "accel_gain":
		b.AccelGain = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
