package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"
)

// HeatMap draws a [torque][rpm] matrix as w by h colored blocks, highest
// torque on top. Each block samples the nearest cell. The color scale spans
// the finite values of the matrix.
func HeatMap(m *mat.Dense, w, h int, theme Theme) string {
	return HeatMapCursor(m, w, h, theme, -1, -1)
}

// HeatMapCursor is HeatMap with the block covering cell (ci, cj) marked.
func HeatMapCursor(m *mat.Dense, w, h int, theme Theme, ci, cj int) string {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 || w <= 0 || h <= 0 {
		return ""
	}

	lo, hi := Range(m)
	span := hi - lo
	if span == 0 || math.IsNaN(span) {
		span = 1
	}

	infeasible := lipgloss.NewStyle().Foreground(theme.Infeasible).Render("·")
	cursor := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("◆")
	cx, cy := -1, -1
	if ci >= 0 && cj >= 0 {
		cx, cy = cj*w/cols, h-1-ci*h/rows
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		i := (h - 1 - y) * rows / h
		for x := 0; x < w; x++ {
			if x == cx && y == cy {
				b.WriteString(cursor)
				continue
			}
			j := x * cols / w
			v := m.At(i, j)
			if math.IsNaN(v) {
				b.WriteString(infeasible)
				continue
			}
			color := theme.Scale((v - lo) / span)
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render("█"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Range is the smallest and largest non NaN value, or NaN for both when
// there is none.
func Range(m *mat.Dense) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.RawMatrix().Data {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// Legend renders the color scale between the given bounds.
func Legend(lo, hi float64, w int, unit string, theme Theme) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-10.4g ", lo))
	for x := 0; x < w; x++ {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Scale(float64(x)/float64(max(w-1, 1)))).Render("█"))
	}
	b.WriteString(fmt.Sprintf(" %.4g %s", hi, unit))
	return b.String()
}
