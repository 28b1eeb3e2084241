// Package geometry describes the physical layout of a radial flux motor and
// derives the areas, volumes and length ratios that scaling laws sample.
//
// A Geometry is a plain value. Every derived quantity is a method computed from
// the stored fields, so replacing a field updates all of them consistently.
package geometry

import (
	"fmt"
	"math"
)

type Termination string

const (
	Star  Termination = "star"
	Delta Termination = "delta"
)

type Layout string

const (
	Outrunner Layout = "outrunner"
	Inrunner  Layout = "inrunner"
	Toroidal  Layout = "toroidal"
)

// Geometry holds the canonical stored fields. Pole, slot and turn counts are
// real valued so that frequency and turns rescaling can act as a continuous
// relaxation; only integer values are physically realizable.
type Geometry struct {
	Poles float64
	Slots float64
	Turns float64

	GapRadius float64 // m
	GapLength float64 // m, axial stack length

	SlotDepthFraction   float64 // of gap radius
	SlotWidthFraction   float64 // slot share of the slot pitch at the airgap
	Airgap              float64 // m
	CoilFill            float64
	MagnetHeight        float64 // m
	MagnetWidthFraction float64 // of pole pitch
	StructureThickness  float64 // m

	Termination Termination
	Layout      Layout
}

// Validate rejects non-physical geometries.
func (g Geometry) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"poles", g.Poles},
		{"slots", g.Slots},
		{"turns", g.Turns},
		{"gap_radius", g.GapRadius},
		{"gap_length", g.GapLength},
		{"slot_depth_fraction", g.SlotDepthFraction},
		{"airgap", g.Airgap},
		{"magnet_height", g.MagnetHeight},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalid, p.name, p.v)
		}
	}
	fractions := []struct {
		name string
		v    float64
	}{
		{"slot_width_fraction", g.SlotWidthFraction},
		{"coil_fill", g.CoilFill},
		{"magnet_width_fraction", g.MagnetWidthFraction},
	}
	for _, f := range fractions {
		if !(f.v > 0 && f.v < 1) {
			return fmt.Errorf("%w: %s = %g, want (0, 1)", ErrInvalid, f.name, f.v)
		}
	}
	if g.SlotDepthFraction >= 1 && g.Layout != Inrunner {
		return fmt.Errorf("%w: slot depth exceeds gap radius", ErrInvalid)
	}
	switch g.Termination {
	case Star, Delta:
	default:
		return fmt.Errorf("%w: termination %q", ErrInvalid, g.Termination)
	}
	switch g.Layout {
	case Outrunner, Inrunner, Toroidal:
	default:
		return fmt.Errorf("%w: layout %q", ErrInvalid, g.Layout)
	}
	return nil
}

// Scale holds multiplicative rescaling factors; a zero factor means 1.
// The absolute overrides take precedence over their matching factor when set.
type Scale struct {
	Length     float64 `yaml:"length"`
	Radius     float64 `yaml:"radius"`
	Turns      float64 `yaml:"turns"`
	SlotDepth  float64 `yaml:"slot_depth"`
	SlotWidth  float64 `yaml:"slot_width"`
	Reluctance float64 `yaml:"reluctance"` // magnet and airgap depth at constant flux
	Frequency  float64 `yaml:"frequency"`  // poles and slots at constant gap radius

	SetTurns     float64 `yaml:"set_turns"`
	SetSlotDepth float64 `yaml:"set_slot_depth"`
	SetRadius    float64 `yaml:"set_gap_radius"`
	SetLength    float64 `yaml:"set_gap_length"`
}

func unit(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Rescale returns a proportionally adjusted copy. Fractional parameters are
// held fixed unless their own factor says otherwise.
func (g Geometry) Rescale(s Scale) Geometry {
	radius := unit(s.Radius)
	if s.SetRadius > 0 {
		radius = s.SetRadius / g.GapRadius
	}
	reluctance := unit(s.Reluctance)
	frequency := unit(s.Frequency)

	out := g
	out.GapRadius = g.GapRadius * radius
	out.GapLength = g.GapLength * unit(s.Length)
	if s.SetLength > 0 {
		out.GapLength = s.SetLength
	}
	out.Airgap = g.Airgap * radius * reluctance
	out.MagnetHeight = g.MagnetHeight * radius * reluctance
	out.Turns = g.Turns * unit(s.Turns)
	if s.SetTurns > 0 {
		out.Turns = s.SetTurns
	}
	out.SlotDepthFraction = g.SlotDepthFraction * unit(s.SlotDepth)
	if s.SetSlotDepth > 0 {
		out.SlotDepthFraction = s.SetSlotDepth / out.GapRadius
	}
	out.SlotWidthFraction = g.SlotWidthFraction * unit(s.SlotWidth)
	out.Poles = g.Poles * frequency
	out.Slots = g.Slots * frequency
	return out
}

func (g Geometry) Radius() float64            { return g.GapRadius }
func (g Geometry) Length() float64            { return g.GapLength }
func (g Geometry) GapDiameter() float64       { return 2 * g.GapRadius }
func (g Geometry) GapCircumference() float64  { return 2 * math.Pi * g.GapRadius }
func (g Geometry) GapArea() float64           { return g.GapCircumference() * g.GapLength }
func (g Geometry) PolePairs() float64         { return g.Poles / 2 }
func (g Geometry) SlotPitch() float64         { return g.GapCircumference() / g.Slots }
func (g Geometry) SlotDepth() float64         { return g.SlotDepthFraction * g.GapRadius }
func (g Geometry) SlotWidth() float64         { return g.SlotPitch() * g.SlotWidthFraction }
func (g Geometry) ToothWidth() float64        { return g.SlotPitch() * (1 - g.SlotWidthFraction) }
func (g Geometry) MagnetWidth() float64       { return g.GapCircumference() / g.Poles * g.MagnetWidthFraction }
func (g Geometry) ToothGapArea() float64      { return g.SlotPitch() * g.GapLength }
func (g Geometry) ReluctanceLength() float64  { return g.Airgap + g.MagnetHeight }
func (g Geometry) StatorFluxArea() float64    { return g.ToothWidth() * g.Slots * g.GapLength }
func (g Geometry) MagnetsVolume() float64     { return g.GapArea() * g.MagnetHeight * g.MagnetWidthFraction }
func (g Geometry) BackVolume() float64        { return g.BackIronThickness() * g.RotorRadius() * g.GapLength }
func (g Geometry) RotorVolume() float64       { return g.BackVolume() + g.MagnetsVolume() }
func (g Geometry) SideArea() float64          { return math.Pi * g.OuterRadius() * g.OuterRadius() }
func (g Geometry) CoilsVolumeFill() float64   { return g.CoilFill * g.CoilsVolume() }
func (g Geometry) CoilsAreaFill() float64     { return g.CoilFill * g.SlotsArea() }
func (g Geometry) CoilAreaFill() float64      { return g.CoilFill * g.SlotArea() }
func (g Geometry) SlotArea() float64          { return g.SlotsArea() / g.Slots }
func (g Geometry) ToothArea() float64         { return g.ToothWidth() * g.SlotDepth() }
func (g Geometry) TeethArea() float64         { return g.ToothArea() * g.Slots }
func (g Geometry) TeethVolume() float64       { return g.TeethArea() * g.GapLength }
func (g Geometry) StatorVolume() float64      { return g.BackIronThickness()*g.StatorRadius()*g.GapLength + g.TeethVolume() }
func (g Geometry) AspectRatio() float64       { return g.GapLength / g.GapDiameter() }
func (g Geometry) CoilsVolume() float64       { return g.SlotsArea() * (g.GapLength + g.EndWindingLength()) * 2 }
func (g Geometry) BackIronThickness() float64 { return g.ToothWidth() / 2 }

// SlotRadius is the radius at the bottom of the slots.
func (g Geometry) SlotRadius() float64 {
	if g.Layout == Inrunner {
		return g.GapRadius + g.SlotDepth()
	}
	return g.GapRadius - g.SlotDepth()
}

func (g Geometry) StatorRadius() float64 {
	if g.Layout == Inrunner {
		return g.SlotRadius() + g.BackIronThickness()
	}
	return g.SlotRadius() - g.BackIronThickness()
}

func (g Geometry) RotorRadius() float64 {
	rotor := g.Airgap + g.MagnetHeight + g.BackIronThickness()
	if g.Layout == Inrunner {
		return g.GapRadius - rotor
	}
	return g.GapRadius + rotor
}

func (g Geometry) OuterRadius() float64 {
	if g.Layout == Inrunner {
		return g.StatorRadius()
	}
	return g.RotorRadius()
}

func (g Geometry) InnerRadius() float64 {
	if g.Layout == Inrunner {
		return g.RotorRadius()
	}
	return g.StatorRadius()
}

// SlotsArea is the combined cross section of all slots.
func (g Geometry) SlotsArea() float64 {
	r, s := g.GapRadius, g.SlotRadius()
	return math.Abs(r*r-s*s)*math.Pi - g.TeethArea()
}

// CoilThickness is the average coil build as wound around a tooth, or around
// the back iron for a toroidal winding.
func (g Geometry) CoilThickness() float64 {
	if g.Layout == Toroidal {
		return g.SlotDepth()
	}
	return g.SlotArea() / g.SlotDepth() / 2
}

// CoilsContactArea is the contact area between coils and stator iron.
func (g Geometry) CoilsContactArea() float64 {
	if g.Layout == Toroidal {
		return g.GapLength * g.SlotWidth() * g.Slots
	}
	return g.GapLength * g.SlotDepth() * g.Slots
}

// EndWindingLength is the length of one end turn.
func (g Geometry) EndWindingLength() float64 {
	if g.Layout == Toroidal {
		return g.CoilThickness()*2 + g.BackIronThickness()
	}
	return g.CoilThickness()*2 + g.ToothWidth()
}

// StructureVolume covers two side plates, a hub plate and the outer shell.
func (g Geometry) StructureVolume() float64 {
	r := g.GapRadius
	return r*r*math.Pi*g.StructureThickness*3 + g.GapArea()*g.StructureThickness
}

// OuterLength is the axial length including the shell.
func (g Geometry) OuterLength() float64 {
	rest := g.SlotWidth()/2 + g.Airgap + g.StructureThickness
	return g.GapLength + 2*rest
}

// PMFluxScale is proportional to the magnet flux linked per turn.
func (g Geometry) PMFluxScale() float64 {
	return g.GapLength * g.MagnetHeight / g.ReluctanceLength()
}

// IronFieldScale is proportional to the flux density in the stator teeth.
func (g Geometry) IronFieldScale() float64 {
	return g.MagnetHeight / g.ReluctanceLength() / (1 - g.SlotWidthFraction)
}

func loopRatios(l, r float64) (float64, float64) {
	s := l + r
	return l / s, r / s
}

// CoilRatios splits copper between the slots and the end turns.
func (g Geometry) CoilRatios() (coaxial, endWinding float64) {
	return loopRatios(g.GapLength, g.EndWindingLength())
}

// FluxRatios splits winding flux between the airgap and end-of-stack fringing.
func (g Geometry) FluxRatios() (coaxial, endWinding float64) {
	return loopRatios(g.GapArea()/g.ReluctanceLength(), g.TeethArea()/g.SlotWidth()/4)
}

func (g Geometry) RPMToHz(rpm float64) float64 { return rpm / 60 }

func (g Geometry) RPMToElectricHz(rpm float64) float64 { return rpm / 60 * g.PolePairs() }

func (g Geometry) RPMToElectricRadians(rpm float64) float64 {
	return g.RPMToElectricHz(rpm) * 2 * math.Pi
}
