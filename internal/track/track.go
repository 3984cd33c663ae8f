// Package track provides closed reference paths for offline runs.
package track

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/mpcdrive/internal/reference"
)

var (
	ErrTooShort = errors.New("track: need at least 4 waypoints")
	ErrFormat   = errors.New("track: malformed waypoint file")
)

// Track is a closed polyline; the last waypoint connects back to the first.
type Track struct {
	Name      string
	Waypoints []reference.Point
}

func New(name string, pts []reference.Point) (*Track, error) {
	if len(pts) < 4 {
		return nil, ErrTooShort
	}
	return &Track{Name: name, Waypoints: pts}, nil
}

func (t *Track) Len() int { return len(t.Waypoints) }

// Start returns a pose on the first waypoint facing the second.
func (t *Track) Start() reference.Pose {
	a, b := t.Waypoints[0], t.Waypoints[1]
	return reference.Pose{X: a.X, Y: a.Y, Psi: math.Atan2(b.Y-a.Y, b.X-a.X)}
}

// Nearest returns the index of the waypoint closest to (x, y).
func (t *Track) Nearest(x, y float64) int {
	best, bestD := 0, math.Inf(1)
	for i, p := range t.Waypoints {
		if d := math.Hypot(p.X-x, p.Y-y); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Ahead returns count waypoints starting at the nearest one, wrapping
// around the loop.
func (t *Track) Ahead(x, y float64, count int) []reference.Point {
	n := len(t.Waypoints)
	if count > n {
		count = n
	}
	start := t.Nearest(x, y)
	out := make([]reference.Point, count)
	for i := range out {
		out[i] = t.Waypoints[(start+i)%n]
	}
	return out
}

// Distance is the shortest distance from (x, y) to the polyline.
func (t *Track) Distance(x, y float64) float64 {
	n := len(t.Waypoints)
	best := math.Inf(1)
	for i := 0; i < n; i++ {
		a, b := t.Waypoints[i], t.Waypoints[(i+1)%n]
		if d := segmentDistance(x, y, a, b); d < best {
			best = d
		}
	}
	return best
}

// Length is the perimeter of the loop.
func (t *Track) Length() float64 {
	n := len(t.Waypoints)
	total := 0.0
	for i := 0; i < n; i++ {
		a, b := t.Waypoints[i], t.Waypoints[(i+1)%n]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total
}

func segmentDistance(x, y float64, a, b reference.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}
	u := ((x-a.X)*dx + (y-a.Y)*dy) / l2
	u = math.Max(0, math.Min(1, u))
	return math.Hypot(x-(a.X+u*dx), y-(a.Y+u*dy))
}

// Load reads one "x,y" pair per line. Blank lines and lines starting with #
// are skipped.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], ".csv")
	return Read(name, f)
}

func Read(name string, r io.Reader) (*Track, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var pts []reference.Point
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: record %d has %d fields", ErrFormat, line, len(rec))
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: record %d: %q", ErrFormat, line, rec)
		}
		pts = append(pts, reference.Point{X: x, Y: y})
	}
	return New(name, pts)
}

// Cursor follows a vehicle along a track, searching only a window ahead of
// the last match so crossings on a figure eight do not jump branches.
type Cursor struct {
	t      *Track
	idx    int
	window int
	seeded bool
}

func (t *Track) Cursor(window int) *Cursor {
	if window <= 0 || window > len(t.Waypoints) {
		window = len(t.Waypoints)
	}
	return &Cursor{t: t, window: window}
}

// Index is the waypoint last matched.
func (c *Cursor) Index() int { return c.idx }

func (c *Cursor) Ahead(x, y float64, count int) []reference.Point {
	n := len(c.t.Waypoints)
	if !c.seeded {
		c.idx = c.t.Nearest(x, y)
		c.seeded = true
	} else {
		best, bestD := c.idx, math.Inf(1)
		for k := 0; k < c.window; k++ {
			i := (c.idx + k) % n
			p := c.t.Waypoints[i]
			if d := math.Hypot(p.X-x, p.Y-y); d < bestD {
				best, bestD = i, d
			}
		}
		c.idx = best
	}

	if count > n {
		count = n
	}
	out := make([]reference.Point, count)
	for i := range out {
		out[i] = c.t.Waypoints[(c.idx+i)%n]
	}
	return out
}
