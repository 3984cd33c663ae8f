package pilot

import (
	"sync"

	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

// DefaultLookahead is the number of waypoints handed to the fit each cycle.
const DefaultLookahead = 8

// Driver closes the loop around the bicycle plant: it reads the pose from
// the simulated state [x, y, psi, v], looks up the next waypoints on a track
// and plans. After a failed cycle it repeats the previous command.
type Driver struct {
	pilot     *Pilot
	cursor    *track.Cursor
	lookahead int

	mu       sync.Mutex
	last     sim.Control
	lastPlan *Plan
	failures int
}

func NewDriver(p *Pilot, tr *track.Track, lookahead int) *Driver {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Driver{
		pilot:     p,
		cursor:    tr.Cursor(4 * lookahead),
		lookahead: lookahead,
		last:      sim.Control{0, 0},
	}
}

func (d *Driver) Compute(x sim.State, t float64) sim.Control {
	pose := reference.Pose{X: x[0], Y: x[1], Psi: x[2]}
	pts := d.cursor.Ahead(pose.X, pose.Y, d.lookahead)

	plan, err := d.pilot.Plan(pts, pose, x[3])

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.failures++
		d.pilot.logger.Warnw("plan failed, holding last command", "t", t, "error", err)
		return d.last.Clone()
	}
	d.last = sim.Control{plan.Result.Steering, plan.Result.Throttle}
	d.lastPlan = plan
	return d.last.Clone()
}

// LastPlan returns the most recent successful plan, or nil.
func (d *Driver) LastPlan() *Plan {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPlan
}

func (d *Driver) Failures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}

var _ sim.Controller = (*Driver)(nil)
