package controllers

import (
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

// trackError measures the plant state [x, y, psi, v] against the upcoming
// waypoints the same way the MPC pilot does: fit the vehicle-frame curve and
// read cte and epsi at the origin.
type trackError struct {
	cursor    *track.Cursor
	lookahead int
}

func newTrackError(tr *track.Track, lookahead int) trackError {
	if lookahead < reference.Degree+1 {
		lookahead = 8
	}
	return trackError{cursor: tr.Cursor(4 * lookahead), lookahead: lookahead}
}

func (e trackError) measure(x sim.State) (cte, epsi float64, err error) {
	pose := reference.Pose{X: x[0], Y: x[1], Psi: x[2]}
	local := reference.ToVehicleFrame(e.cursor.Ahead(pose.X, pose.Y, e.lookahead), pose)
	xs, ys := reference.Split(local)
	coeffs, err := reference.Fit(xs, ys, reference.Degree)
	if err != nil {
		return 0, 0, err
	}
	cte, epsi = reference.InitialErrors(coeffs)
	return cte, epsi, nil
}
