package metrics

import (
	"math"

	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

// CrossTrack is the RMS distance from the plant position to the track.
type CrossTrack struct {
	tr      *track.Track
	sumSq   float64
	samples int
}

func NewCrossTrack(tr *track.Track) *CrossTrack {
	return &CrossTrack{tr: tr}
}

func (c *CrossTrack) Name() string { return "cross_track" }

func (c *CrossTrack) Observe(x sim.State, u sim.Control, t float64) {
	d := c.tr.Distance(x[0], x[1])
	c.sumSq += d * d
	c.samples++
}

func (c *CrossTrack) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *CrossTrack) Reset() {
	c.sumSq = 0
	c.samples = 0
}

// MaxCrossTrack is the largest distance from the track seen in the run.
type MaxCrossTrack struct {
	tr  *track.Track
	max float64
}

func NewMaxCrossTrack(tr *track.Track) *MaxCrossTrack {
	return &MaxCrossTrack{tr: tr}
}

func (m *MaxCrossTrack) Name() string { return "max_cross_track" }

func (m *MaxCrossTrack) Observe(x sim.State, u sim.Control, t float64) {
	m.max = math.Max(m.max, m.tr.Distance(x[0], x[1]))
}

func (m *MaxCrossTrack) Value() float64 { return m.max }
func (m *MaxCrossTrack) Reset()         { m.max = 0 }

// MeanSpeed averages the speed component x[3].
type MeanSpeed struct {
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed { return &MeanSpeed{} }

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(x sim.State, u sim.Control, t float64) {
	if len(x) < 4 {
		return
	}
	m.sum += x[3]
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}

// Standard returns the metric set recorded for every track run.
func Standard(tr *track.Track) []sim.Metric {
	return []sim.Metric{
		NewCrossTrack(tr),
		NewMaxCrossTrack(tr),
		NewMeanSpeed(),
		NewControlEffort(),
		NewSteerJerk(),
	}
}
