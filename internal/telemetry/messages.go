package telemetry

import (
	"encoding/json"
	"fmt"
)

const (
	EventTelemetry = "telemetry"
	EventSteer     = "steer"
	EventManual    = "manual"
)

// ManualFrame hands control back to the simulator's keyboard.
var ManualFrame = []byte(`42["manual",{}]`)

// Telemetry is one sample from the simulator. Waypoints and pose are in
// the world frame; Psi is in radians.
type Telemetry struct {
	PtsX          []float64 `json:"ptsx"`
	PtsY          []float64 `json:"ptsy"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Psi           float64   `json:"psi"`
	Speed         float64   `json:"speed"`
	SteeringAngle float64   `json:"steering_angle"`
	Throttle      float64   `json:"throttle"`
}

// Steer is the reply. SteeringAngle is normalised to [-1, 1]; the predicted
// path and the reference waypoints are in the vehicle frame for display.
type Steer struct {
	SteeringAngle float64   `json:"steering_angle"`
	Throttle      float64   `json:"throttle"`
	MpcX          []float64 `json:"mpc_x"`
	MpcY          []float64 `json:"mpc_y"`
	NextX         []float64 `json:"next_x"`
	NextY         []float64 `json:"next_y"`
}

func DecodeTelemetry(f *Frame) (*Telemetry, error) {
	if f.Event != EventTelemetry {
		return nil, fmt.Errorf("telemetry: unexpected event %q", f.Event)
	}
	var t Telemetry
	if err := json.Unmarshal(f.Payload, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &t, nil
}

func EncodeSteer(s *Steer) ([]byte, error) {
	return Encode(EventSteer, s)
}
