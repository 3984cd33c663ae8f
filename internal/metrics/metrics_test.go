package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

func box(t *testing.T) *track.Track {
	t.Helper()
	tr, err := track.New("box", []reference.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestCrossTrack(t *testing.T) {
	tr := box(t)
	rms := NewCrossTrack(tr)
	worst := NewMaxCrossTrack(tr)

	for _, y := range []float64{1, -1, 3} {
		x := sim.State{5, y, 0, 0}
		rms.Observe(x, nil, 0)
		worst.Observe(x, nil, 0)
	}

	want := math.Sqrt((1 + 1 + 9) / 3.0)
	if math.Abs(rms.Value()-want) > 1e-12 {
		t.Errorf("cross_track = %v, want %v", rms.Value(), want)
	}
	if worst.Value() != 3 {
		t.Errorf("max_cross_track = %v, want 3", worst.Value())
	}

	rms.Reset()
	worst.Reset()
	if rms.Value() != 0 || worst.Value() != 0 {
		t.Error("Reset did not clear metrics")
	}
}

func TestMeanSpeed(t *testing.T) {
	m := NewMeanSpeed()
	for _, v := range []float64{10, 20, 30} {
		m.Observe(sim.State{0, 0, 0, v}, nil, 0)
	}
	if m.Value() != 20 {
		t.Errorf("mean_speed = %v, want 20", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	c := NewControlEffort()
	c.Observe(nil, sim.Control{0.5, -0.5}, 0)
	c.Observe(nil, sim.Control{0, 1}, 0.1)
	if c.Value() != 1 {
		t.Errorf("control_effort = %v, want 1", c.Value())
	}
}

func TestSteerJerk(t *testing.T) {
	s := NewSteerJerk()
	s.Observe(nil, sim.Control{0, 0}, 0)
	s.Observe(nil, sim.Control{0.1, 0}, 0.1)
	s.Observe(nil, sim.Control{0.1, 0}, 0.2)

	// changes of 1 rad/s then 0 rad/s
	if math.Abs(s.Value()-0.5) > 1e-9 {
		t.Errorf("steer_jerk = %v, want 0.5", s.Value())
	}
	s.Reset()
	if s.Value() != 0 {
		t.Error("Reset did not clear steer_jerk")
	}
}

func TestStandardNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard(box(t)) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	for _, name := range []string{"cross_track", "max_cross_track", "mean_speed", "control_effort", "steer_jerk"} {
		if !seen[name] {
			t.Errorf("missing metric %s", name)
		}
	}
}
