package battery

import (
	"fmt"
	"sort"
)

var Samsung21700 = Cell{
	Name:           "samsung-21700",
	MaximumVoltage: 4.2,
	NominalVoltage: 3.6,
	MinimumVoltage: 3.0,
	Resistance:     7e-3,
	Capacity:       4.9,
	PeakDischarge:  8,
	PeakCharge:     5,
	Mass:           70e-3,
}

var LFP26650 = Cell{
	Name:           "lifepo4-26650",
	MaximumVoltage: 3.65,
	NominalVoltage: 3.2,
	MinimumVoltage: 2.5,
	Resistance:     20e-3,
	Capacity:       4.0,
	PeakDischarge:  3,
	PeakCharge:     3,
	Mass:           88e-3,
}

var cells = map[string]Cell{
	Samsung21700.Name: Samsung21700,
	LFP26650.Name:     LFP26650,
}

func GetCell(name string) (Cell, error) {
	c, ok := cells[name]
	if !ok {
		return Cell{}, fmt.Errorf("%w: %s", ErrUnknownCell, name)
	}
	return c, nil
}

func ListCells() []string {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ideal is an effectively unlimited source at a fixed voltage with no
// internal resistance.
func Ideal(v float64) Battery {
	return Battery{
		Cell: Cell{
			Name:           "ideal",
			MaximumVoltage: v,
			NominalVoltage: v,
			MinimumVoltage: v,
			Capacity:       1e6,
			PeakDischarge:  1e3,
			PeakCharge:     1e3,
		},
		S:           1,
		P:           1,
		ChargeState: 1,
	}
}

func Pack58V(p float64) Battery {
	return Battery{Cell: Samsung21700, S: 14, P: p, ChargeState: 1}
}

func Pack75V(p float64) Battery {
	return Battery{Cell: Samsung21700, S: 18, P: p, ChargeState: 1}
}
