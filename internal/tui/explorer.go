package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/metrics"
	"github.com/san-kum/powertrain/internal/system"
	"github.com/san-kum/powertrain/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// Solver re-solves the map after the system was edited.
type Solver func(system.System) (*system.Result, error)

type layer struct {
	name string
	unit string
	get  func(*system.Result) *mat.Dense
}

var layers = []layer{
	{"output torque", "Nm", func(r *system.Result) *mat.Dense { return r.Output }},
	{"bus power", "W", func(r *system.Result) *mat.Dense { return r.Bus }},
	{"dissipation", "W", func(r *system.Result) *mat.Dense { return r.Dissipation() }},
	{"efficiency", "", func(r *system.Result) *mat.Dense { return r.Efficiency() }},
	{"field current", "A", func(r *system.Result) *mat.Dense { return r.Id }},
	{"voltage ratio", "", func(r *system.Result) *mat.Dense { return r.VoltageRatio }},
	{"bus voltage", "V", func(r *system.Result) *mat.Dense { return r.BusVoltage }},
}

type state int

const (
	stateMap state = iota
	stateConfig
)

type solvedMsg struct {
	res *system.Result
	err error
}

type model struct {
	state   state
	name    string
	base    system.System
	res     *system.Result
	summary map[string]float64
	solve   Solver

	layer int
	row   int // torque index
	col   int // rpm index
	theme int

	params      map[string]float64
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	solving bool
	err     error

	width  int
	height int
}

// NewExplorer browses a solved map. paths names relative system fields, such
// as motor.scale.length, that can be edited and re-solved with solve; solve
// may be nil for a read only view. Edits always apply to s, never compound.
func NewExplorer(name string, s system.System, res *system.Result, solve Solver, paths []string) *model {
	rows, _ := res.Dims()
	m := &model{
		name:       name,
		base:       s,
		res:        res,
		summary:    metrics.Summarize(res, metrics.Defaults()...),
		solve:      solve,
		row:        rows / 2,
		params:     make(map[string]float64),
		paramNames: paths,
		width:      80,
		height:     24,
	}
	for _, p := range paths {
		m.params[p] = 1
	}
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case solvedMsg:
		m.solving = false
		m.err = msg.err
		if msg.err == nil {
			m.res = msg.res
			m.summary = metrics.Summarize(msg.res, metrics.Defaults()...)
			m.clampCursor()
			m.state = stateMap
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMap:
		return m.mapKey(msg)
	case stateConfig:
		return m.configKey(msg)
	}
	return m, nil
}

// step moves the cursor by about one heat map block.
func (m model) step() (int, int) {
	rows, cols := m.res.Dims()
	w, h := m.mapSize()
	return max(1, rows/h), max(1, cols/w)
}

func (m model) mapKey(msg tea.KeyMsg) (model, tea.Cmd) {
	di, dj := m.step()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.row += di
	case "down", "j":
		m.row -= di
	case "right", "l":
		m.col += dj
	case "left", "h":
		m.col -= dj
	case "tab", "n":
		m.layer = (m.layer + 1) % len(layers)
	case "shift+tab", "N":
		m.layer = (m.layer + len(layers) - 1) % len(layers)
	case "t":
		m.theme = (m.theme + 1) % len(viz.Themes)
	case "c":
		if m.solve != nil && len(m.paramNames) > 0 {
			m.state = stateConfig
			m.paramCursor = 0
		}
	}
	m.clampCursor()
	return m, nil
}

func (m *model) clampCursor() {
	rows, cols := m.res.Dims()
	m.row = min(max(m.row, 0), rows-1)
	m.col = min(max(m.col, 0), cols-1)
}

// configKey edits the relative factors applied to the base system.
func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				m.params[m.paramNames[m.paramCursor]] = v
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMap
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(m.params[m.paramNames[m.paramCursor]], 'g', -1, 64)
	case "left", "h":
		m.params[m.paramNames[m.paramCursor]] /= 1.1
	case "right", "l":
		m.params[m.paramNames[m.paramCursor]] *= 1.1
	case "s":
		if m.solving {
			return m, nil
		}
		m.solving = true
		m.err = nil
		return m, m.resolve()
	}
	return m, nil
}

// resolve applies the edited values to the system in the background.
func (m model) resolve() tea.Cmd {
	base, params, solve := m.base, make(map[string]float64, len(m.params)), m.solve
	for k, v := range m.params {
		params[k] = v
	}
	return func() tea.Msg {
		s, err := base.SetAll(params)
		if err != nil {
			return solvedMsg{err: err}
		}
		res, err := solve(s)
		return solvedMsg{res: res, err: err}
	}
}

func (m model) View() string {
	switch m.state {
	case stateMap:
		return m.viewMap()
	case stateConfig:
		return m.viewConfig()
	}
	return ""
}

// mapSize is the heat map size in blocks for the current window.
func (m model) mapSize() (int, int) {
	return max(m.width-34, 20), max(m.height-8, 8)
}

func (m model) viewMap() string {
	var b strings.Builder
	l := layers[m.layer]
	theme := viz.Themes[m.theme]
	data := l.get(m.res)
	w, h := m.mapSize()

	b.WriteString("\n  " + cyan.Render(m.name) + "  " + white.Render(l.name) + dim.Render(fmt.Sprintf("  [%d/%d]", m.layer+1, len(layers))) + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", w)) + "\n")

	heat := viz.HeatMapCursor(data, w, h, theme, m.row, m.col)
	lo, hi := viz.Range(data)
	heat += viz.Legend(lo, hi, max(w-24, 4), l.unit, theme)

	panel := lipgloss.JoinVertical(lipgloss.Left,
		viz.Summary("cell", m.cellRows()),
		viz.Summary("map", viz.MetricRows(m.summary)),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, heat, "  ", panel))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(yellow.Render("  "+m.err.Error()) + "\n")
	}
	b.WriteString(dim.Render("  ←↓↑→ move  tab layer  t theme  c edit  q quit") + "\n")
	return b.String()
}

func (m model) cellRows() []viz.Row {
	i, j := m.row, m.col
	r := m.res
	format := func(v float64, unit string) string {
		return strings.TrimSpace(fmt.Sprintf("%.4g %s", v, unit))
	}
	rows := []viz.Row{
		{Label: "torque", Value: format(r.Torque[i], "Nm")},
		{Label: "rpm", Value: format(r.RPM[j], "")},
	}
	if !r.Feasible(i, j) {
		return append(rows, viz.Row{Label: "state", Value: "infeasible"})
	}
	diss := r.Copper.At(i, j) + r.Iron.At(i, j)
	rows = append(rows,
		viz.Row{Label: "output", Value: format(r.Output.At(i, j), "Nm")},
		viz.Row{Label: "bus", Value: format(r.Bus.At(i, j), "W")},
		viz.Row{Label: "mechanical", Value: format(r.Mechanical.At(i, j), "W")},
		viz.Row{Label: "dissipation", Value: format(diss, "W")},
		viz.Row{Label: "iq", Value: format(r.Iq.At(i, j), "A")},
		viz.Row{Label: "id", Value: format(r.Id.At(i, j), "A")},
		viz.Row{Label: "voltage", Value: format(r.VoltageRatio.At(i, j)*100, "%")},
		viz.Row{Label: "bus voltage", Value: format(r.BusVoltage.At(i, j), "V")},
	)
	return rows
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.name) + "  " + dim.Render("relative edits") + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 40)) + "\n\n")

	for i, name := range m.paramNames {
		val := fmt.Sprintf("%8.3f", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%8s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-26s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-26s", name)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString("\n")
	if m.solving {
		b.WriteString(yellow.Render("      solving...") + "\n")
	}
	if m.err != nil {
		b.WriteString(yellow.Render("      "+m.err.Error()) + "\n")
	}
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  enter edit  s solve  esc back") + "\n")

	return b.String()
}

func RunExplorer(name string, s system.System, res *system.Result, solve Solver, paths []string) error {
	p := tea.NewProgram(NewExplorer(name, s, res, solve, paths), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
