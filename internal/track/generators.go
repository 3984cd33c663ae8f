package track

import (
	"math"

	"github.com/san-kum/mpcdrive/internal/reference"
)

// Oval is a stadium: two straights of length straight joined by half
// circles of radius r, traversed counter-clockwise. Waypoints are spaced
// roughly spacing apart.
func Oval(straight, r, spacing float64) *Track {
	var pts []reference.Point
	add := func(p reference.Point) { pts = append(pts, p) }

	ns := int(math.Max(1, math.Round(straight/spacing)))
	na := int(math.Max(4, math.Round(math.Pi*r/spacing)))

	for i := 0; i < ns; i++ {
		add(reference.Point{X: -straight/2 + straight*float64(i)/float64(ns), Y: -r})
	}
	for i := 0; i < na; i++ {
		a := -math.Pi/2 + math.Pi*float64(i)/float64(na)
		add(reference.Point{X: straight/2 + r*math.Cos(a), Y: r * math.Sin(a)})
	}
	for i := 0; i < ns; i++ {
		add(reference.Point{X: straight/2 - straight*float64(i)/float64(ns), Y: r})
	}
	for i := 0; i < na; i++ {
		a := math.Pi/2 + math.Pi*float64(i)/float64(na)
		add(reference.Point{X: -straight/2 + r*math.Cos(a), Y: r * math.Sin(a)})
	}

	return &Track{Name: "oval", Waypoints: pts}
}

// Sine is a wavy ring: a circle of radius r whose radius oscillates by amp
// with the given number of lobes.
func Sine(r, amp float64, lobes int, spacing float64) *Track {
	n := int(math.Max(8, math.Round(2*math.Pi*r/spacing)))
	pts := make([]reference.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		rr := r + amp*math.Sin(float64(lobes)*a)
		pts[i] = reference.Point{X: rr * math.Cos(a), Y: rr * math.Sin(a)}
	}
	return &Track{Name: "sine", Waypoints: pts}
}

// Figure8 is a lemniscate of Gerono with half-width a.
func Figure8(a, spacing float64) *Track {
	// perimeter of the lemniscate is about 6.1a
	n := int(math.Max(16, math.Round(6.1*a/spacing)))
	pts := make([]reference.Point, n)
	for i := range pts {
		s := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = reference.Point{X: a * math.Sin(s), Y: a * math.Sin(s) * math.Cos(s)}
	}
	return &Track{Name: "figure8", Waypoints: pts}
}

// Builtin returns the generated tracks by name with the default sizes.
func Builtin() map[string]*Track {
	return map[string]*Track{
		"oval":    Oval(300, 120, 15),
		"sine":    Sine(200, 25, 5, 15),
		"figure8": Figure8(250, 15),
	}
}
