// Package pilot turns raw simulator telemetry into actuator commands: it
// moves the waypoints into the vehicle frame, fits the reference curve,
// derives the initial tracking errors and runs the trajectory optimizer.
package pilot

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/telemetry"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

var ErrNoWaypoints = errors.New("pilot: not enough waypoints to fit the reference")

// maxWheelAngle is the simulator's full steering lock; commands are sent as
// a fraction of it.
var maxWheelAngle = reference.Deg2Rad(25)

// Plan is the outcome of one control cycle.
type Plan struct {
	Coeffs    reference.Coeffs
	State     vehicle.State[float64]
	Result    *mpc.Result
	Waypoints []reference.Point
}

// Steer returns the command in the simulator's units.
func (p *Plan) Steer() *telemetry.Steer {
	next := p.Waypoints
	s := &telemetry.Steer{
		SteeringAngle: NormalizeSteering(p.Result.Steering),
		Throttle:      p.Result.Throttle,
		MpcX:          append([]float64{}, p.Result.X...),
		MpcY:          append([]float64{}, p.Result.Y...),
		NextX:         make([]float64, len(next)),
		NextY:         make([]float64, len(next)),
	}
	for i, w := range next {
		s.NextX[i], s.NextY[i] = w.X, w.Y
	}
	return s
}

// NormalizeSteering maps radians onto [-1, 1] of full lock.
func NormalizeSteering(rad float64) float64 {
	return math.Max(-1, math.Min(1, rad/maxWheelAngle))
}

type Pilot struct {
	ctrl   *mpc.Controller
	logger *zap.SugaredLogger
}

func New(ctrl *mpc.Controller, logger *zap.SugaredLogger) *Pilot {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pilot{ctrl: ctrl, logger: logger}
}

// Plan runs one cycle from world-frame waypoints and pose. Speed is in the
// same unit as the horizon's reference speed.
func (p *Pilot) Plan(pts []reference.Point, pose reference.Pose, speed float64) (*Plan, error) {
	if len(pts) < reference.Degree+1 {
		return nil, fmt.Errorf("%w: have %d", ErrNoWaypoints, len(pts))
	}

	local := reference.ToVehicleFrame(pts, pose)
	xs, ys := reference.Split(local)

	coeffs, err := reference.Fit(xs, ys, reference.Degree)
	if err != nil {
		return nil, fmt.Errorf("pilot: fit: %w", err)
	}

	cte, epsi := reference.InitialErrors(coeffs)
	state := vehicle.State[float64]{V: speed, CTE: cte, EPsi: epsi}

	res, err := p.ctrl.Solve(state, coeffs)
	if err != nil {
		return nil, err
	}

	p.logger.Debugw("plan",
		"cte", cte,
		"epsi", epsi,
		"speed", speed,
		"steer", res.Steering,
		"throttle", res.Throttle,
		"status", res.Status,
	)

	return &Plan{Coeffs: coeffs, State: state, Result: res, Waypoints: local}, nil
}

// Drive serves the telemetry transport.
func (p *Pilot) Drive(t *telemetry.Telemetry) (*telemetry.Steer, error) {
	plan, err := p.Plan(reference.Zip(t.PtsX, t.PtsY), reference.Pose{X: t.X, Y: t.Y, Psi: t.Psi}, t.Speed)
	if err != nil {
		return nil, err
	}
	return plan.Steer(), nil
}

var _ telemetry.Driver = (*Pilot)(nil)
