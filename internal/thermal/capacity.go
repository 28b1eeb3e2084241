package thermal

import (
	"fmt"

	"github.com/san-kum/powertrain/internal/mass"
	"github.com/san-kum/powertrain/internal/scaled"
)

// Specific heats in J/kg/K.
const (
	CopperCp   = 0.376e3
	IronCp     = 0.45e3
	AluminumCp = 0.91e3
	MagnetCp   = 1.05e3
	UrethaneCp = 2.0e3
)

// Fixed capacities of the nodes that have no mass of their own. The outside
// air acts as an infinite reservoir.
const (
	InnerAirCapacity = 1
	AirCapacity      = 1e9
)

var capacityScaling = scaled.Table[string]{
	"coils":  {"coils": 1},
	"stator": {"stator": 1},
	"rotor":  {"rotor": 1},
	"shell":  {"shell": 1},
	"inner":  {},
	"air":    {},
}

// Capacity returns the heat capacity in J/K of every node, from part masses
// times specific heat.
func Capacity(m mass.Mass) (map[string]float64, error) {
	s := scaled.New(capacityScaling, m).FromDimensionless(map[string]float64{
		"coils":  CopperCp,
		"stator": IronCp,
		"rotor":  IronCp,
		"shell":  AluminumCp,
		"inner":  InnerAirCapacity,
		"air":    AirCapacity,
	})
	out, err := s.Values()
	if err != nil {
		return nil, fmt.Errorf("thermal: capacity: %w", err)
	}
	return out, nil
}
