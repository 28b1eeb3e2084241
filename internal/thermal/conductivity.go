package thermal

import (
	"fmt"

	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/scaled"
)

// Thermal conductivities of common materials in W/m/K.
const (
	CopperK     = 401
	IronK       = 70
	SiSteelK    = 28
	AluminumK   = 180
	MagnetK     = 100
	AirK        = 2.88e-2 // at 60 °C
	FerrofluidK = 0.45
)

// Triplet holds the constant, circumferential and linear velocity weighted
// components of a conductance. Missing trailing components are zero.
type Triplet []float64

var suffixes = []struct {
	suffix string
	flow   string
}{
	{"", ""},
	{"_c", "circumferential"},
	{"_v", "linear"},
}

// Expand splits every triplet into up to three scaled attributes. The
// circumferential and linear components gain a unit exponent on the matching
// flow velocity.
func Expand(table scaled.Table[string], attrs map[string]Triplet) (scaled.Table[string], map[string]float64) {
	outTable := make(scaled.Table[string])
	outAttrs := make(map[string]float64)
	for name, triplet := range attrs {
		for i, v := range triplet {
			if i >= len(suffixes) {
				break
			}
			s := suffixes[i]
			exps := make(scaled.Exponents, len(table[name])+1)
			for q, e := range table[name] {
				exps[q] = e
			}
			if s.flow != "" {
				exps[s.flow] = 1
			}
			outTable[name+s.suffix] = exps
			outAttrs[name+s.suffix] = v
		}
	}
	return outTable, outAttrs
}

// Flow holds the air velocities a motor sees, in m/s.
type Flow struct {
	Linear          float64 `yaml:"linear"`          // free stream
	Circumferential float64 `yaml:"circumferential"` // rotor surface
}

func (f Flow) params(tuning scaled.Params) scaled.Params {
	p := scaled.Params{"linear": f.Linear, "circumferential": f.Circumferential}
	for k, v := range tuning {
		p[k] = v
	}
	return p
}

// Conductivity is a scaled set of named conductances plus the dimensionless
// tuning parameters their scaling laws refer to.
type Conductivity struct {
	attrs  scaled.Scaled[string]
	tuning scaled.Params
}

// Evaluate returns the conductance of every node pair for a geometry and flow.
func (c Conductivity) Evaluate(g geometry.Geometry, flow Flow) (map[Pair]float64, error) {
	s := c.attrs.WithContexts(flow.params(c.tuning), g)
	out := make(map[Pair]float64)
	for _, name := range s.Names() {
		p, ok := ParsePair(name)
		if !ok {
			return nil, fmt.Errorf("%w: conductance %q", ErrInvalid, name)
		}
		v, err := s.Get(name)
		if err != nil {
			return nil, fmt.Errorf("thermal: %w", err)
		}
		out[p] += v
	}
	return out, nil
}

// unitFlow backs absolute per-velocity conductances out of a geometry.
var unitFlow = Flow{Linear: 1, Circumferential: 1}

// Basic couples coils to stator and the stator to air, with a stator-air film
// coefficient of k0 + kc·v_c + kl·v_l in W/K at the given geometry.
func Basic(g geometry.Geometry, k0, kc, kl float64) (Conductivity, error) {
	table, attrs := Expand(
		scaled.Table[string]{
			"coils_stator": {"coils_contact_area": 1, "coil_thickness": -1},
			"stator_air":   {"coils_contact_area": 1},
		},
		map[string]Triplet{
			"coils_stator": {10},
			"stator_air":   {k0, kc, kl},
		},
	)
	s, err := scaled.New(table, unitFlow.params(nil), g).FromDimensional(attrs)
	if err != nil {
		return Conductivity{}, fmt.Errorf("thermal: %w", err)
	}
	return Conductivity{attrs: s}, nil
}

// ShellOptions tune a closed-shell hub motor; all are dimensionless weights.
type ShellOptions struct {
	Statorade    float64 `yaml:"statorade"`     // ferrofluid in the airgap
	SideExposure float64 `yaml:"side_exposure"` // share exposed to free stream
	RimExposure  float64 `yaml:"rim_exposure"`
	Vented       float64 `yaml:"vented"`
	Potted       float64 `yaml:"potted"`
	Emissivity   float64 `yaml:"emissivity"`
}

func DefaultShellOptions() ShellOptions {
	return ShellOptions{
		Statorade:    1,
		SideExposure: 1,
		RimExposure:  1,
		Vented:       0,
		Potted:       1,
		Emissivity:   1,
	}
}

// RadiativeK linearizes radiative exchange between two temperatures in °C.
func RadiativeK(ta, tb, emissivity float64) float64 {
	const sigma = 5.6703e-8
	ta, tb = ta+273, tb+273
	return sigma * emissivity * (ta*ta*ta*ta - tb*tb*tb*tb) / (ta - tb)
}

// Shelled models a closed hub motor whose heat path is dominated by the
// boundary layers in and around the shell. Coefficients are dimensionless,
// so the model scales with any geometry it is evaluated on.
func Shelled(o ShellOptions) Conductivity {
	gapRadiation := RadiativeK(80, 40, 1)
	shellRadiation := RadiativeK(80, 40, 1) * 2
	h0, h1 := 25.0*2, 2.0*2

	table, attrs := Expand(
		scaled.Table[string]{
			"coils_stator_direct":  {"coils_contact_area": 1, "coil_thickness": -1},
			"coils_stator_potting": {"coils_contact_area": 1, "coil_thickness": -1, "potted": 1},
			"stator_rotor_air":     {"gap_area": 1, "airgap": -1},
			"stator_rotor_ff":      {"gap_area": 1, "airgap": -1, "statorade": 1},
			"stator_rotor_rad":     {"gap_area": 1, "emissivity": 1},
			"stator_shell_rad":     {"side_area": 1, "emissivity": 1},
			"rotor_shell":          {"rotor_volume": 1, "length": -2},
			"inner_shell":          {"side_area": 1},
			"inner_stator":         {"side_area": 1},
			"shell_air":            {"side_area": 1},
			"rotor_air":            {"gap_area": 1, "rim_exposure": 1},
			"inner_air":            {"side_area": 1, "vented": 1},
		},
		map[string]Triplet{
			"coils_stator_direct":  {5},
			"coils_stator_potting": {10},
			"stator_rotor_air":     {AirK},
			"stator_rotor_ff":      {FerrofluidK, FerrofluidK / 15},
			"stator_rotor_rad":     {gapRadiation},
			"stator_shell_rad":     {shellRadiation},
			"rotor_shell":          {IronK},
			"inner_stator":         {h0, h1},
			"inner_shell":          {h0, h1 * 0.6},
			"shell_air":            {h0, h1, h1},
			"rotor_air":            {h0, h1, h1},
			"inner_air":            {100, 5, 10},
		},
	)
	// side exposure only blocks the free stream
	for _, name := range []string{"inner_air_v", "rotor_air_v", "shell_air_v"} {
		table[name]["side_exposure"] = 1
	}

	return Conductivity{
		attrs: scaled.New(table).FromDimensionless(attrs),
		tuning: scaled.Params{
			"statorade":     o.Statorade,
			"side_exposure": o.SideExposure,
			"rim_exposure":  o.RimExposure,
			"vented":        o.Vented,
			"potted":        o.Potted,
			"emissivity":    o.Emissivity,
		},
	}
}

// Open models a frameless or drone style motor in open air. h is the
// convective conductance in W/K at g, and per m/s for its flow components.
func Open(g geometry.Geometry, h float64) (Conductivity, error) {
	table, attrs := Expand(
		scaled.Table[string]{
			"coils_stator": {"coils_contact_area": 1, "coil_thickness": -1},
			"stator_rotor": {"gap_area": 1, "airgap": -1},
			"rotor_shell":  {"gap_circumference": 1, "back_iron_thickness": 1, "length": -1},
			"stator_air":   {"coils_contact_area": 1},
			"coils_air":    {"coils_contact_area": 1},
			"shell_air":    {"side_area": 1},
			"rotor_air":    {"gap_area": 1},
		},
		map[string]Triplet{
			"coils_stator": {20},
			"stator_rotor": {0.5},
			"rotor_shell":  {1.6},
			"stator_air":   {h / 2, 0, h},
			"coils_air":    {h / 2, 0, h},
			"shell_air":    {h / 2, h / 2, h},
			"rotor_air":    {h / 2, h / 2, h},
		},
	)
	s, err := scaled.New(table, unitFlow.params(nil), g).FromDimensional(attrs)
	if err != nil {
		return Conductivity{}, fmt.Errorf("thermal: %w", err)
	}
	return Conductivity{attrs: s}, nil
}
