package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme is the palette heat maps and panels are drawn with. Low, Mid and High
// are the color scale stops.
type Theme struct {
	Name       string
	Low        lipgloss.Color
	Mid        lipgloss.Color
	High       lipgloss.Color
	Infeasible lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
}

var (
	ThemeInferno = Theme{
		Name:       "inferno",
		Low:        lipgloss.Color("#1b0c41"),
		Mid:        lipgloss.Color("#bc3754"),
		High:       lipgloss.Color("#fcffa4"),
		Infeasible: lipgloss.Color("#3a3a3a"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#777777"),
		Border:     lipgloss.Color("#444466"),
	}

	ThemeViridis = Theme{
		Name:       "viridis",
		Low:        lipgloss.Color("#440154"),
		Mid:        lipgloss.Color("#21918c"),
		High:       lipgloss.Color("#fde725"),
		Infeasible: lipgloss.Color("#3a3a3a"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#777777"),
		Border:     lipgloss.Color("#335544"),
	}

	ThemeMono = Theme{
		Name:       "mono",
		Low:        lipgloss.Color("#202020"),
		Mid:        lipgloss.Color("#808080"),
		High:       lipgloss.Color("#f0f0f0"),
		Infeasible: lipgloss.Color("#000000"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#666666"),
		Border:     lipgloss.Color("#888888"),
	}

	Themes = []Theme{ThemeInferno, ThemeViridis, ThemeMono}
)

// GetTheme returns a theme by name, falling back to inferno.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeInferno
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Scale maps a normalized value in [0, 1] onto the theme's color stops,
// blending in Lab space. Values outside the range are clamped.
func (t Theme) Scale(v float64) lipgloss.Color {
	switch {
	case v <= 0:
		return t.Low
	case v >= 1:
		return t.High
	case v < 0.5:
		return blend(t.Low, t.Mid, v*2)
	default:
		return blend(t.Mid, t.High, v*2-1)
	}
}

func blend(a, b lipgloss.Color, f float64) lipgloss.Color {
	ca, err := colorful.Hex(string(a))
	if err != nil {
		return a
	}
	cb, err := colorful.Hex(string(b))
	if err != nil {
		return a
	}
	return lipgloss.Color(ca.BlendLab(cb, f).Clamped().Hex())
}
