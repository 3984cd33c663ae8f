package mpc

import (
	"fmt"
	"time"

	"github.com/san-kum/mpcdrive/internal/vehicle"
)

// Horizon fixes the shape of every solve. It is a value and is never
// modified after construction.
type Horizon struct {
	Steps    int
	Dt       float64
	RefSpeed float64
	Lf       float64
	// DelaySteps is the actuation latency in whole timesteps.
	DelaySteps int
	SteerLimit float64
	AccelLimit float64
	Budget     time.Duration
}

func DefaultHorizon() Horizon {
	return Horizon{
		Steps:      20,
		Dt:         0.1,
		RefSpeed:   50,
		Lf:         vehicle.Lf,
		DelaySteps: 1,
		SteerLimit: 0.436332,
		AccelLimit: 1.0,
		Budget:     500 * time.Millisecond,
	}
}

func (h Horizon) Validate() error {
	switch {
	case h.Steps < 3:
		return fmt.Errorf("%w: steps %d < 3", ErrHorizon, h.Steps)
	case h.Dt <= 0:
		return fmt.Errorf("%w: dt %g", ErrHorizon, h.Dt)
	case h.Lf <= 0:
		return fmt.Errorf("%w: lf %g", ErrHorizon, h.Lf)
	case h.DelaySteps < 0 || h.DelaySteps >= h.Steps-1:
		return fmt.Errorf("%w: delay %d outside [0, %d)", ErrHorizon, h.DelaySteps, h.Steps-1)
	case h.SteerLimit <= 0 || h.AccelLimit <= 0:
		return fmt.Errorf("%w: limits must be positive", ErrHorizon)
	case h.Budget < 0:
		return fmt.Errorf("%w: negative budget", ErrHorizon)
	}
	return nil
}

func (h Horizon) Params() vehicle.Params {
	return vehicle.Params{Lf: h.Lf, Dt: h.Dt}
}

func (h Horizon) Layout() Layout {
	return NewLayout(h.Steps)
}

// Weights scale the cost terms. Tracking dominates effort and rate by one to
// two orders of magnitude.
type Weights struct {
	CTE        float64
	EPsi       float64
	Speed      float64
	Steer      float64
	Accel      float64
	SteerSpeed float64
	SteerRate  float64
	AccelRate  float64
}

func DefaultWeights() Weights {
	return Weights{
		CTE:        1000,
		EPsi:       1000,
		Speed:      1,
		Steer:      50,
		Accel:      50,
		SteerSpeed: 100,
		SteerRate:  100,
		AccelRate:  100,
	}
}

// WeightNames lists the names accepted by Weights.With, in field order.
func WeightNames() []string {
	return []string{"cte", "epsi", "speed", "steer", "accel", "steer_speed", "steer_rate", "accel_rate"}
}

// With returns a copy of w with the named weight replaced.
func (w Weights) With(name string, v float64) (Weights, error) {
	if v < 0 {
		return w, fmt.Errorf("%w: %s=%g is negative", ErrWeight, name, v)
	}
	switch name {
	case "cte":
		w.CTE = v
	case "epsi":
		w.EPsi = v
	case "speed":
		w.Speed = v
	case "steer":
		w.Steer = v
	case "accel":
		w.Accel = v
	case "steer_speed":
		w.SteerSpeed = v
	case "steer_rate":
		w.SteerRate = v
	case "accel_rate":
		w.AccelRate = v
	default:
		return w, fmt.Errorf("%w: unknown weight %q", ErrWeight, name)
	}
	return w, nil
}
