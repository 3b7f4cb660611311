package tui

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots; dot bits by (row, col):
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = rune(0x2800)

// Canvas is a Braille pixel grid. Pixel coordinates run over
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, grid: make([][]rune, h)}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row][col] |= pixelMap[y%4][x%2]
}

// IsSet reports whether pixel (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
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

// DrawAtom fills a small disc of radius r pixels.
func (c *Canvas) DrawAtom(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(x+dx, y+dy)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps the x-y plane of world coordinates onto canvas pixels,
// preserving aspect ratio.
type Viewport struct {
	minX, minY, scale float64
	offX, offY        float64
}

// FitViewport frames points (rows of at least one coordinate) with a margin
// given as a fraction of the larger extent.
func FitViewport(c *Canvas, points [][]float64, margin float64) Viewport {
	if len(points) == 0 {
		return Viewport{scale: 1}
	}
	minX, maxX := points[0][0], points[0][0]
	minY, maxY := yOf(points[0]), yOf(points[0])
	for _, p := range points[1:] {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, yOf(p)), max(maxY, yOf(p))
	}
	extent := max(maxX-minX, maxY-minY)
	if extent == 0 {
		extent = 1
	}
	pad := extent * margin
	minX, maxX, minY, maxY = minX-pad, maxX+pad, minY-pad, maxY+pad
	extent += 2 * pad

	pw, ph := float64(c.Width*2-1), float64(c.Height*4-1)
	scale := min(pw, ph) / extent
	return Viewport{
		minX:  minX,
		minY:  minY,
		scale: scale,
		offX:  (pw - (maxX-minX)*scale) / 2,
		offY:  (ph - (maxY-minY)*scale) / 2,
	}
}

func yOf(p []float64) float64 {
	if len(p) < 2 {
		return 0
	}
	return p[1]
}

func (v Viewport) project(p []float64) (float64, float64) {
	return v.offX + (p[0]-v.minX)*v.scale, v.offY + (yOf(p)-v.minY)*v.scale
}

// Project returns pixel coordinates; y grows downwards on screen.
func (v Viewport) Project(p []float64) (int, int) {
	px, py := v.project(p)
	return int(math.Round(px)), int(math.Round(py))
}

// onCanvas reports whether p projects within one canvas size of the visible
// area. Points further out are not drawn.
func (c *Canvas) onCanvas(v Viewport, p []float64) bool {
	px, py := v.project(p)
	w, h := float64(c.Width*2), float64(c.Height*4)
	return px >= -w && px <= 2*w && py >= -h && py <= 2*h
}

// DrawMolecule draws bonds as lines and atoms as discs.
func (c *Canvas) DrawMolecule(v Viewport, points [][]float64, bonds [][2]int) {
	for _, b := range bonds {
		if !c.onCanvas(v, points[b[0]]) || !c.onCanvas(v, points[b[1]]) {
			continue
		}
		x0, y0 := v.Project(points[b[0]])
		x1, y1 := v.Project(points[b[1]])
		c.DrawLine(x0, y0, x1, y1)
	}
	for _, p := range points {
		if !c.onCanvas(v, p) {
			continue
		}
		x, y := v.Project(p)
		c.DrawAtom(x, y, 1)
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
