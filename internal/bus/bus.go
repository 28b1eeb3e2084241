// Package bus models the copper wiring between battery and controller.
package bus

const (
	CopperResistivity = 1.68e-8 // Ω·m
	CopperDensity     = 8960    // kg/m³
)

type Bus struct {
	Length float64 `yaml:"length"` // m, round trip
	Area   float64 `yaml:"area"`   // m², conductor cross section
}

// Default is a metre of 1 mm² copper.
func Default() Bus {
	return Bus{Length: 1, Area: 1e-6}
}

func (b Bus) Resistance() float64 {
	if b.Area <= 0 {
		return 0
	}
	return CopperResistivity * b.Length / b.Area
}

func (b Bus) Weight() float64 { return b.Length * b.Area * CopperDensity }
