// Package electrical models the electromagnetic identity of a PMSM.
//
// Every constant is stored as a dimensionless coefficient and multiplied on
// read by a geometry-derived factor, so swapping in a rescaled geometry yields
// a motor whose resistance, inductance, torque constant and loss terms follow
// their physical scaling laws.
package electrical

import (
	"fmt"
	"math"

	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/scaled"
)

type Attr string

const (
	Kt                   Attr = "Kt"
	RCoaxial             Attr = "R_co"
	REndWinding          Attr = "R_ew"
	LCoaxial             Attr = "L_co"
	LEndWinding          Attr = "L_ew"
	D0                   Attr = "d_0"
	D1                   Attr = "d_1"
	Saturation           Attr = "saturation"
	Demagnetization      Attr = "demagnetization"
	SalienceRatio        Attr = "salience_ratio"
	DemagnetizationRatio Attr = "demagnetization_ratio"
)

const (
	Mu0 = 1.256e-6 // vacuum permeability
	R0  = 1.68e-8  // copper resistivity
)

// Nondimensional defaults, calibrated against a Grin all axle hub motor.
const (
	DefaultD0                   = 373
	DefaultD1                   = 0.54
	DefaultSaturation           = 0.2
	DefaultDemagnetization      = 500e3
	DefaultDemagnetizationRatio = 0.25
)

// Scaling is the power law each attribute follows. Iron loss exponents on the
// field strength are said to lie between 1.6 and 2.0.
var Scaling = scaled.Table[Attr]{
	Kt:                   {"turns": 1, "slots": 1, "radius": 1, "pm_flux_scale": 1},
	RCoaxial:             {"turns": 2, "length": 1, "coil_resistance": 1, "slots": 1},
	REndWinding:          {"turns": 2, "ew_length": 1, "coil_resistance": 1, "slots": 1},
	LCoaxial:             {"turns": 2, "tooth_gap_area": 1, "gap_reluctance": -1, "slots": 1},
	LEndWinding:          {"turns": 2, "tooth_area": 1, "slot_reluctance": -1, "slots": 1},
	D0:                   {"radius": 1, "stator_volume": 1, "iron_field_scale": 1.8, "poles": 1},
	D1:                   {"radius": 1, "stator_volume": 1, "iron_field_scale": 1.8, "poles": 2},
	Saturation:           {"gap_reluctance": 1, "turns": -1},
	Demagnetization:      {"magnet_height": 1, "turns": -1},
	SalienceRatio:        {},
	DemagnetizationRatio: {},
}

// materials samples the quantities that depend on material constants.
type materials struct {
	g geometry.Geometry
}

func (m materials) Sample(key string) (float64, bool) {
	switch key {
	case "coil_resistance":
		// x4: the conductor passes the same cross section back and forth
		return R0 / m.g.CoilAreaFill() * 4, true
	case "gap_reluctance":
		return m.g.ReluctanceLength() / Mu0, true
	case "slot_reluctance":
		return m.g.SlotWidth() / Mu0, true
	}
	return 0, false
}

func contexts(g geometry.Geometry) []scaled.Context {
	return []scaled.Context{materials{g}, g}
}

// Electrical is an immutable electrical model bound to one geometry.
type Electrical struct {
	geometry geometry.Geometry
	attrs    scaled.Scaled[Attr]
}

// FromCoefficients builds a model directly from dimensionless coefficients.
func FromCoefficients(g geometry.Geometry, coeffs map[Attr]float64) (Electrical, error) {
	e := Electrical{
		geometry: g,
		attrs:    scaled.New(Scaling, contexts(g)...).FromDimensionless(coeffs),
	}
	if err := e.check(); err != nil {
		return Electrical{}, err
	}
	return e, nil
}

func (e Electrical) check() error {
	for attr := range Scaling {
		if _, ok := e.attrs.Coefficient(attr); !ok {
			return fmt.Errorf("%w: coefficient %s", ErrMissing, attr)
		}
	}
	if _, err := e.attrs.Values(); err != nil {
		return err
	}
	return nil
}

func (e Electrical) Geometry() geometry.Geometry { return e.geometry }

// WithGeometry rebinds the model; coefficients are kept so every dimensional
// value follows its scaling law.
func (e Electrical) WithGeometry(g geometry.Geometry) Electrical {
	e.geometry = g
	e.attrs = e.attrs.WithContexts(contexts(g)...)
	return e
}

// Coefficients returns a copy of the stored dimensionless coefficients.
func (e Electrical) Coefficients() map[Attr]float64 {
	out := make(map[Attr]float64, len(Scaling))
	for _, name := range e.attrs.Names() {
		out[name], _ = e.attrs.Coefficient(name)
	}
	return out
}

// Get returns a dimensional attribute, or NaN when the model is incomplete.
func (e Electrical) Get(name Attr) float64 {
	v, err := e.attrs.Get(name)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (e Electrical) Kt() float64 { return e.Get(Kt) }
func (e Electrical) Kv() float64 { return KvFromKt(e.Kt()) }
func (e Electrical) R() float64  { return e.Get(RCoaxial) + e.Get(REndWinding) }
func (e Electrical) L() float64  { return e.Get(LCoaxial) + e.Get(LEndWinding) }

// Km is the motor constant in Nm/sqrt(W).
func (e Electrical) Km() float64 { return e.Kt() / math.Sqrt(e.R()) }

// Lq and Ld split L by the salience ratio; a positive ratio gives the
// interior magnet case Lq > Ld.
func (e Electrical) Lq() float64 { return e.L() * (1 + e.Get(SalienceRatio)) }
func (e Electrical) Ld() float64 { return e.L() / (1 + e.Get(SalienceRatio)) }

// Salience is Ld - Lq; reluctance torque is 1.5·pp·Salience·Id·Iq.
func (e Electrical) Salience() float64 { return e.Ld() - e.Lq() }

// Flux is the magnet flux linkage in the dq frame.
func (e Electrical) Flux() float64 { return FluxFromKt(e.Kt(), e.geometry.PolePairs()) }

// FluxFromKt converts a dq torque constant to flux linkage.
func FluxFromKt(kt, polePairs float64) float64 { return kt / (1.5 * polePairs) }

// IronDrag returns the iron loss drag torque in Nm at a mechanical frequency
// in Hz. The torque opposes rotation and is exactly zero at standstill.
func (e Electrical) IronDrag(hz float64) float64 {
	return dragTorque(e.Get(D0), e.Get(D1), hz)
}

// dragTorque evaluates d0·sign(hz) + d1·hz.
func dragTorque(d0, d1, hz float64) float64 {
	if hz == 0 {
		return 0
	}
	return math.Copysign(d0, hz) + d1*hz
}

func (e Electrical) SaturationCurrent() float64      { return e.Get(Saturation) }
func (e Electrical) DemagnetizationCurrent() float64 { return e.Get(Demagnetization) }

// SaturationFactor is the torque per amp at the given current relative to
// the unsaturated torque constant.
func (e Electrical) SaturationFactor(amps float64) float64 {
	return SaturationFactor(amps, e.SaturationCurrent())
}

// Desaturate returns the physical current needed to produce the given
// effective, torque-producing current.
func (e Electrical) Desaturate(effective float64) float64 {
	return Desaturate(effective, e.SaturationCurrent())
}

// DemagnetizationFactor must stay below 1 to avoid demagnetizing the magnets.
func (e Electrical) DemagnetizationFactor(iq, id float64) float64 {
	return DemagnetizationFactor(iq, id, e.DemagnetizationCurrent(), e.Get(DemagnetizationRatio))
}

// DemagnetizationFactor penalizes reverse d-axis current quadratically, plus a
// cross term from q-axis current weighted by ratio.
func DemagnetizationFactor(iq, id, threshold, ratio float64) float64 {
	d := id / threshold
	q := iq / threshold * ratio
	return -math.Abs(d)*d + q*q
}
