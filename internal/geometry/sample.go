package geometry

// quantities are the names scaling laws may sample from a geometry.
var quantities = map[string]func(Geometry) float64{
	"poles":               func(g Geometry) float64 { return g.Poles },
	"slots":               func(g Geometry) float64 { return g.Slots },
	"turns":               func(g Geometry) float64 { return g.Turns },
	"radius":              Geometry.Radius,
	"length":              Geometry.Length,
	"gap_radius":          Geometry.Radius,
	"gap_length":          Geometry.Length,
	"gap_area":            Geometry.GapArea,
	"gap_circumference":   Geometry.GapCircumference,
	"magnet_height":       func(g Geometry) float64 { return g.MagnetHeight },
	"airgap":              func(g Geometry) float64 { return g.Airgap },
	"slot_depth":          Geometry.SlotDepth,
	"slot_width":          Geometry.SlotWidth,
	"tooth_width":         Geometry.ToothWidth,
	"back_iron_thickness": Geometry.BackIronThickness,
	"tooth_area":          Geometry.ToothArea,
	"teeth_area":          Geometry.TeethArea,
	"tooth_gap_area":      Geometry.ToothGapArea,
	"slot_area":           Geometry.SlotArea,
	"slots_area":          Geometry.SlotsArea,
	"coil_area_fill":      Geometry.CoilAreaFill,
	"coils_area_fill":     Geometry.CoilsAreaFill,
	"coils_volume_fill":   Geometry.CoilsVolumeFill,
	"coils_contact_area":  Geometry.CoilsContactArea,
	"coil_thickness":      Geometry.CoilThickness,
	"ew_length":           Geometry.EndWindingLength,
	"stator_volume":       Geometry.StatorVolume,
	"rotor_volume":        Geometry.RotorVolume,
	"magnets_volume":      Geometry.MagnetsVolume,
	"structure_volume":    Geometry.StructureVolume,
	"stator_flux_area":    Geometry.StatorFluxArea,
	"reluctance_length":   Geometry.ReluctanceLength,
	"outer_radius":        Geometry.OuterRadius,
	"inner_radius":        Geometry.InnerRadius,
	"outer_length":        Geometry.OuterLength,
	"side_area":           Geometry.SideArea,
	"pm_flux_scale":       Geometry.PMFluxScale,
	"iron_field_scale":    Geometry.IronFieldScale,
}

// Sample implements scaled.Context.
func (g Geometry) Sample(key string) (float64, bool) {
	f, ok := quantities[key]
	if !ok {
		return 0, false
	}
	return f(g), true
}
