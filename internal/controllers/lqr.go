package controllers

import (
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

// LQR applies u = -K (e - target) to an error vector e.
type LQR struct {
	K      [][]float64
	Target []float64
}

func NewLQR(k [][]float64, target []float64) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Apply(e []float64) []float64 {
	u := make([]float64, len(l.K))

	for i := range u {
		for j := range e {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			u[i] -= l.K[i][j] * (e[j] - target)
		}
	}

	return u
}

// Lateral is a linear state-feedback path follower over the error vector
// [cte, epsi, v - ref].
type Lateral struct {
	lqr        *LQR
	refSpeed   float64
	steerLimit float64
	errs       trackError
	last       sim.Control
}

// NewLateral builds the controller with gains for a car at refSpeed.
// Steering reacts to cte and epsi, throttle to the speed error.
func NewLateral(tr *track.Track, kCTE, kEPsi, kSpeed, refSpeed, steerLimit float64) *Lateral {
	k := [][]float64{
		{kCTE, -kEPsi, 0},
		{0, 0, kSpeed},
	}
	return &Lateral{
		lqr:        NewLQR(k, nil),
		refSpeed:   refSpeed,
		steerLimit: steerLimit,
		errs:       newTrackError(tr, 8),
		last:       sim.Control{0, 0},
	}
}

func (c *Lateral) Compute(x sim.State, t float64) sim.Control {
	cte, epsi, err := c.errs.measure(x)
	if err != nil {
		return c.last.Clone()
	}

	u := c.lqr.Apply([]float64{cte, epsi, x[3] - c.refSpeed})
	c.last = sim.Control{clamp(u[0], c.steerLimit), clamp(u[1], 1)}
	return c.last.Clone()
}
