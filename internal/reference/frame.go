package reference

import "math"

// Point is a 2D location.
type Point struct {
	X, Y float64
}

// Pose is a position and heading in the world frame.
type Pose struct {
	X, Y, Psi float64
}

// ToVehicleFrame expresses world-frame points in the frame of a vehicle at
// pose: origin at the vehicle, +x along its heading.
func ToVehicleFrame(pts []Point, pose Pose) []Point {
	sin, cos := math.Sincos(-pose.Psi)
	out := make([]Point, len(pts))
	for i, p := range pts {
		dx := p.X - pose.X
		dy := p.Y - pose.Y
		out[i] = Point{
			X: dx*cos - dy*sin,
			Y: dx*sin + dy*cos,
		}
	}
	return out
}

// ToWorldFrame inverts ToVehicleFrame.
func ToWorldFrame(pts []Point, pose Pose) []Point {
	sin, cos := math.Sincos(pose.Psi)
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{
			X: pose.X + p.X*cos - p.Y*sin,
			Y: pose.Y + p.X*sin + p.Y*cos,
		}
	}
	return out
}

// Split separates points into coordinate slices.
func Split(pts []Point) (xs, ys []float64) {
	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

// Zip pairs coordinate slices into points, truncating to the shorter one.
func Zip(xs, ys []float64) []Point {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i] = Point{X: xs[i], Y: ys[i]}
	}
	return out
}

func Deg2Rad(x float64) float64 { return x * math.Pi / 180 }
func Rad2Deg(x float64) float64 { return x * 180 / math.Pi }
