package geometry

import "fmt"

const (
	DefaultTurns                = 5
	DefaultSlotWidthFraction    = 0.5
	DefaultCoilFill             = 0.6
	DefaultToroidalCoilFill     = 0.8
	DefaultMagnetHeightFraction = 0.03
	DefaultMagnetWidthFraction  = 0.9
	DefaultAirgapFraction       = 0.007
	DefaultStructureThickness   = 3e-3
)

// Options lists the accepted parameterizations. Within each group at most one
// field may be set; zero means unset. Groups with a default fall back to it.
type Options struct {
	Turns float64 `yaml:"turns"`

	Slots        float64 `yaml:"slots"`
	SlotTriplets float64 `yaml:"slot_triplets"`

	Poles     float64 `yaml:"poles"`
	PolePairs float64 `yaml:"pole_pairs"`

	GapRadius   float64 `yaml:"gap_radius"`
	GapDiameter float64 `yaml:"gap_diameter"`

	GapLength   float64 `yaml:"gap_length"`
	AspectRatio float64 `yaml:"aspect_ratio"` // gap length over gap diameter

	SlotDepth         float64 `yaml:"slot_depth"`
	SlotDepthFraction float64 `yaml:"slot_depth_fraction"`

	MagnetHeight         float64 `yaml:"magnet_height"`
	MagnetHeightFraction float64 `yaml:"magnet_height_fraction"`

	MagnetWidth         float64 `yaml:"magnet_width"`
	MagnetWidthFraction float64 `yaml:"magnet_width_fraction"`

	Airgap         float64 `yaml:"airgap"`
	AirgapFraction float64 `yaml:"airgap_fraction"`

	SlotWidthFraction  float64     `yaml:"slot_width_fraction"`
	CoilFill           float64     `yaml:"coil_fill"`
	StructureThickness float64     `yaml:"structure_thickness"`
	Termination        Termination `yaml:"termination"`
	Layout             Layout      `yaml:"layout"`
}

// pick resolves one group of alternatives. direct is used as-is, derived is
// mapped through conv. Both set is a conflict; neither set falls back to def,
// and a zero def means the group is required.
func pick(name string, direct, alt float64, conv func(float64) float64, def float64) (float64, error) {
	switch {
	case direct != 0 && alt != 0:
		return 0, fmt.Errorf("%w: %s given twice", ErrConflict, name)
	case direct != 0:
		return direct, nil
	case alt != 0:
		return conv(alt), nil
	case def != 0:
		return conv(def), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissing, name)
}

// Create normalizes Options into a validated Geometry.
func Create(o Options) (Geometry, error) {
	g := Geometry{
		Turns:              o.Turns,
		SlotWidthFraction:  o.SlotWidthFraction,
		CoilFill:           o.CoilFill,
		StructureThickness: o.StructureThickness,
		Termination:        o.Termination,
		Layout:             o.Layout,
	}
	if g.Turns == 0 {
		g.Turns = DefaultTurns
	}
	if g.SlotWidthFraction == 0 {
		g.SlotWidthFraction = DefaultSlotWidthFraction
	}
	if g.StructureThickness == 0 {
		g.StructureThickness = DefaultStructureThickness
	}
	if g.Termination == "" {
		g.Termination = Star
	}
	if g.Layout == "" {
		g.Layout = Outrunner
	}
	if g.CoilFill == 0 {
		g.CoilFill = DefaultCoilFill
		if g.Layout == Toroidal {
			g.CoilFill = DefaultToroidalCoilFill
		}
	}

	var err error
	if g.Slots, err = pick("slots", o.Slots, o.SlotTriplets, func(v float64) float64 { return v * 3 }, 0); err != nil {
		return Geometry{}, err
	}
	if g.Poles, err = pick("poles", o.Poles, o.PolePairs, func(v float64) float64 { return v * 2 }, 0); err != nil {
		return Geometry{}, err
	}
	if g.GapRadius, err = pick("gap_radius", o.GapRadius, o.GapDiameter, func(v float64) float64 { return v / 2 }, 0); err != nil {
		return Geometry{}, err
	}
	r := g.GapRadius
	if g.GapLength, err = pick("gap_length", o.GapLength, o.AspectRatio, func(v float64) float64 { return v * 2 * r }, 0); err != nil {
		return Geometry{}, err
	}
	if g.SlotDepthFraction, err = pick("slot_depth", o.SlotDepthFraction, o.SlotDepth, func(v float64) float64 { return v / r }, 0); err != nil {
		return Geometry{}, err
	}
	if g.MagnetHeight, err = pick("magnet_height", o.MagnetHeight, o.MagnetHeightFraction, func(v float64) float64 { return v * r }, DefaultMagnetHeightFraction); err != nil {
		return Geometry{}, err
	}
	pitch := g.GapCircumference() / g.Poles
	if o.MagnetWidth != 0 && o.MagnetWidthFraction != 0 {
		return Geometry{}, fmt.Errorf("%w: magnet_width given twice", ErrConflict)
	}
	switch {
	case o.MagnetWidth != 0:
		g.MagnetWidthFraction = o.MagnetWidth / pitch
	case o.MagnetWidthFraction != 0:
		g.MagnetWidthFraction = o.MagnetWidthFraction
	default:
		g.MagnetWidthFraction = DefaultMagnetWidthFraction
	}
	if g.Airgap, err = pick("airgap", o.Airgap, o.AirgapFraction, func(v float64) float64 { return v * r }, DefaultAirgapFraction); err != nil {
		return Geometry{}, err
	}

	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}
