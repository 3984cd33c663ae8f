package sim

// delayLine holds issued commands until their latency has elapsed.
type delayLine struct {
	latency float64
	current Control
	pending []pendingControl
}

type pendingControl struct {
	at float64
	u  Control
}

func newDelayLine(latency float64, dim int) *delayLine {
	return &delayLine{
		latency: latency,
		current: make(Control, dim),
	}
}

func (d *delayLine) push(t float64, u Control) {
	d.pending = append(d.pending, pendingControl{at: t + d.latency, u: u.Clone()})
}

// active returns the command in force at time t.
func (d *delayLine) active(t float64) Control {
	const eps = 1e-9
	n := 0
	for _, p := range d.pending {
		if p.at > t+eps {
			break
		}
		d.current = p.u
		n++
	}
	d.pending = d.pending[n:]
	return d.current
}
