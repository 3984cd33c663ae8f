package controllers

import (
	"math"

	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

// PID is a scalar loop on an error signal.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		first: true,
	}
}

// Update returns the loop output for err observed at time t.
func (p *PID) Update(err, t float64) float64 {
	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.Kp * err
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return u
	}
	return p.Kp * err
}

func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.prevT = 0
	p.first = true
}

// Tracker is the baseline path follower: one PID steers on cross-track
// error, another drives the throttle on speed error. Positive cte means the
// path lies to the left, which needs negative steering.
type Tracker struct {
	Steer      *PID
	Throttle   *PID
	RefSpeed   float64
	SteerLimit float64

	errs trackError
	last sim.Control
}

func NewTracker(tr *track.Track, steer, throttle *PID, refSpeed, steerLimit float64) *Tracker {
	return &Tracker{
		Steer:      steer,
		Throttle:   throttle,
		RefSpeed:   refSpeed,
		SteerLimit: steerLimit,
		errs:       newTrackError(tr, 8),
		last:       sim.Control{0, 0},
	}
}

func (c *Tracker) Compute(x sim.State, t float64) sim.Control {
	cte, _, err := c.errs.measure(x)
	if err != nil {
		return c.last.Clone()
	}

	delta := clamp(-c.Steer.Update(cte, t), c.SteerLimit)
	a := clamp(c.Throttle.Update(c.RefSpeed-x[3], t), 1)

	c.last = sim.Control{delta, a}
	return c.last.Clone()
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
