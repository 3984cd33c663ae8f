package metrics

import (
	"math"

	"github.com/san-kum/mpcdrive/internal/sim"
)

// ControlEffort is the mean of |steering| + |throttle| over the run.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	for _, val := range u {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// SteerJerk is the mean absolute steering change per second.
type SteerJerk struct {
	sum     float64
	samples int
	prev    float64
	prevT   float64
	started bool
}

func NewSteerJerk() *SteerJerk { return &SteerJerk{} }

func (s *SteerJerk) Name() string { return "steer_jerk" }

func (s *SteerJerk) Observe(x sim.State, u sim.Control, t float64) {
	if len(u) == 0 {
		return
	}
	if s.started && t > s.prevT {
		s.sum += math.Abs(u[0]-s.prev) / (t - s.prevT)
		s.samples++
	}
	s.prev, s.prevT, s.started = u[0], t, true
}

func (s *SteerJerk) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *SteerJerk) Reset() {
	*s = SteerJerk{}
}
