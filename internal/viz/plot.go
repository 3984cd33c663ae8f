package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mpcdrive/internal/reference"
)

// Chart plots one or more equally sampled series with asciigraph. Empty
// series are dropped; it returns "" when nothing is left to draw.
func Chart(caption string, width, height int, series ...[]float64) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			data = append(data, finite(s))
		}
	}
	if len(data) == 0 {
		return ""
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	}
	if len(data) > 1 {
		opts = append(opts, asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Red, asciigraph.Green, asciigraph.Yellow))
	}
	return asciigraph.PlotMany(data, opts...)
}

// finite replaces NaN and Inf so asciigraph can scale the axis.
func finite(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Map draws paths on a braille canvas of w x h cells, scaled to fit all of
// them. When closed is set the first path is drawn as a loop (a track).
func Map(w, h int, closed bool, paths ...[]reference.Point) string {
	c := NewCanvas(w, h)
	var all []reference.Point
	for _, p := range paths {
		all = append(all, p...)
	}
	v := Fit(c, all)
	for i, p := range paths {
		c.DrawPath(v, p, closed && i == 0)
	}
	return c.String()
}
