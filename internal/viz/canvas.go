package viz

import (
	"math"
	"strings"

	"github.com/san-kum/mpcdrive/internal/reference"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

// Set turns on the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Mark overwrites the cell holding dot (x, y) with r.
func (c *Canvas) Mark(x, y int, r rune) {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return
	}
	c.Grid[y/4][x/2] = r
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawPath joins consecutive world points through v. closed also joins the
// last point back to the first.
func (c *Canvas) DrawPath(v Viewport, pts []reference.Point, closed bool) {
	for i := 1; i < len(pts); i++ {
		x0, y0 := v.Project(pts[i-1])
		x1, y1 := v.Project(pts[i])
		c.DrawLine(x0, y0, x1, y1)
	}
	if closed && len(pts) > 2 {
		x0, y0 := v.Project(pts[len(pts)-1])
		x1, y1 := v.Project(pts[0])
		c.DrawLine(x0, y0, x1, y1)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Viewport maps a world rectangle onto canvas dots with equal scale on both
// axes. World +y points up the screen.
type Viewport struct {
	MinX, MinY float64
	Scale      float64
	HeightDots int
}

// Fit returns the viewport that shows every point on c with a margin of
// two dots.
func Fit(c *Canvas, pts []reference.Point) Viewport {
	w, h := c.Dots()
	if len(pts) == 0 {
		return Viewport{Scale: 1, HeightDots: h}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	const margin = 2
	spanX := math.Max(maxX-minX, 1e-6)
	spanY := math.Max(maxY-minY, 1e-6)
	scale := math.Min(float64(w-1-2*margin)/spanX, float64(h-1-2*margin)/spanY)

	// centre the shorter axis
	offX := (float64(w-1)/scale - spanX) / 2
	offY := (float64(h-1)/scale - spanY) / 2
	return Viewport{
		MinX:       minX - offX,
		MinY:       minY - offY,
		Scale:      scale,
		HeightDots: h,
	}
}

// Around returns a viewport of the given width in metres centred on p.
func Around(c *Canvas, p reference.Point, metres float64) Viewport {
	w, h := c.Dots()
	scale := float64(w-1) / metres
	return Viewport{
		MinX:       p.X - metres/2,
		MinY:       p.Y - float64(h-1)/scale/2,
		Scale:      scale,
		HeightDots: h,
	}
}

func (v Viewport) Project(p reference.Point) (int, int) {
	x := (p.X - v.MinX) * v.Scale
	y := float64(v.HeightDots-1) - (p.Y-v.MinY)*v.Scale
	return int(math.Round(x)), int(math.Round(y))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
