package viz

import (
	"strings"

	"github.com/san-kum/powertrain/internal/system"
)

// Braille patterns: 2x4 dots
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
	Width, Height int // in characters
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
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
	return c
}

// Pixels is the canvas size in dots.
func (c *Canvas) Pixels() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the dot at (x, y), with y growing downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

// DrawLine draws a line using Bresenham's algorithm.
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

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Outline draws the boundary of the feasible region of a solved map, speed
// to the right and torque upwards, plus the zero torque axis. A dot is on the
// boundary when its cell is feasible and a neighbouring dot's cell is not.
func Outline(res *system.Result, w, h int) *Canvas {
	c := NewCanvas(w, h)
	px, py := c.Pixels()
	rows, cols := res.Dims()
	if rows == 0 || cols == 0 {
		return c
	}

	cellOf := func(x, y int) (int, int, bool) {
		if x < 0 || y < 0 || x >= px || y >= py {
			return 0, 0, false
		}
		j := x * cols / px
		i := (py - 1 - y) * rows / py
		return i, j, true
	}
	feasible := func(x, y int) bool {
		i, j, ok := cellOf(x, y)
		return ok && res.Feasible(i, j)
	}

	for y := 0; y < py; y++ {
		for x := 0; x < px; x++ {
			if !feasible(x, y) {
				continue
			}
			if !feasible(x-1, y) || !feasible(x+1, y) || !feasible(x, y-1) || !feasible(x, y+1) {
				c.Set(x, y)
			}
		}
	}

	lo, hi := res.Torque[0], res.Torque[rows-1]
	if lo < 0 && hi > 0 {
		y := int(float64(py-1) * hi / (hi - lo))
		c.DrawLine(0, y, px-1, y)
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
