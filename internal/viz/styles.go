package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ccff"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))
)

// Row is one labeled line of a summary panel.
type Row struct {
	Label string
	Value string
}

// Summary renders a titled panel of aligned label value rows.
func Summary(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.Label))
	}
	lines := []string{Title.Render(title)}
	for _, r := range rows {
		label := MetricLabel.Render(r.Label + strings.Repeat(" ", width-len(r.Label)))
		lines = append(lines, label+"  "+MetricValue.Render(r.Value))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

// MetricRows turns a metrics map into rows sorted by name.
func MetricRows(metrics map[string]float64) []Row {
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([]Row, len(names))
	for i, k := range names {
		rows[i] = Row{Label: k, Value: fmt.Sprintf("%.4g", metrics[k])}
	}
	return rows
}

// ProgressBar renders a share in [0, 1] as a bar of width cells.
func ProgressBar(share float64, width int) string {
	filled := int(share*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
