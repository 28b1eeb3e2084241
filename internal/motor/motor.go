// Package motor composes the electrical, thermal and mass models of a PMSM
// with its coil and magnet temperatures.
package motor

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/mass"
	"github.com/san-kum/powertrain/internal/thermal"
)

var ErrNoThermal = errors.New("motor: no thermal model")

const AmbientTemperature = 20.0

// minDemagnetizationDerate keeps the threshold positive for magnets past
// 180 °C, where the linear derate would reach zero.
const minDemagnetizationDerate = 0.01

// Motor is an immutable value; the With* methods return modified copies.
type Motor struct {
	Electrical electrical.Electrical
	Thermal    *thermal.Model
	Mass       *mass.Mass

	// CurrentLimit optionally caps phase current in A; zero means no cap
	// beyond the demagnetization limit.
	CurrentLimit float64

	CoilTemperature   float64 // °C
	MagnetTemperature float64 // °C
}

func New(e electrical.Electrical) Motor {
	return Motor{
		Electrical:        e,
		CoilTemperature:   AmbientTemperature,
		MagnetTemperature: AmbientTemperature,
	}
}

func (m Motor) WithThermal(t thermal.Model) Motor {
	m.Thermal = &t
	return m
}

func (m Motor) WithMass(ms mass.Mass) Motor {
	m.Mass = &ms
	return m
}

func (m Motor) WithTemperatures(coil, magnet float64) Motor {
	m.CoilTemperature, m.MagnetTemperature = coil, magnet
	return m
}

// WithGeometry rebinds every geometry dependent sub-model.
func (m Motor) WithGeometry(g geometry.Geometry) Motor {
	m.Electrical = m.Electrical.WithGeometry(g)
	if m.Mass != nil {
		ms := m.Mass.WithGeometry(g)
		m.Mass = &ms
	}
	return m
}

func (m Motor) Rescale(s geometry.Scale) Motor {
	return m.WithGeometry(m.Geometry().Rescale(s))
}

func (m Motor) Geometry() geometry.Geometry { return m.Electrical.Geometry() }
func (m Motor) PolePairs() float64          { return m.Geometry().PolePairs() }

// Resistance is the dq resistance at coil temperature; copper gains 39.3%
// from 20 to 100 °C.
func (m Motor) Resistance() float64 {
	derate := 1 + (m.CoilTemperature-20)/(100-20)*0.393
	return m.Electrical.R() * derate
}

// Kt is the dq torque constant at magnet temperature; magnets reversibly lose
// about 5% from 20 to 100 °C.
func (m Motor) Kt() float64 {
	derate := 1 - (m.MagnetTemperature-20)/(100-20)*0.05
	return m.Electrical.Kt() * derate
}

func (m Motor) Kv() float64 { return electrical.KvFromKt(m.Kt()) }

func (m Motor) Flux() float64 { return electrical.FluxFromKt(m.Kt(), m.PolePairs()) }

func (m Motor) Ld() float64       { return m.Electrical.Ld() }
func (m Motor) Lq() float64       { return m.Electrical.Lq() }
func (m Motor) Salience() float64 { return m.Ld() - m.Lq() }

// IronDrag returns drag torque in Nm at a mechanical frequency in Hz.
func (m Motor) IronDrag(hz float64) float64 { return m.Electrical.IronDrag(hz) }

// DemagnetizationThreshold shifts with magnet temperature; the knee of
// neodymium moves about halfway between 60 and 120 °C.
func (m Motor) DemagnetizationThreshold() float64 {
	derate := 1 - (m.MagnetTemperature-60)/(120-60)*0.5
	return m.Electrical.DemagnetizationCurrent() * math.Max(derate, minDemagnetizationDerate)
}

func (m Motor) DemagnetizationRatio() float64 {
	return m.Electrical.Get(electrical.DemagnetizationRatio)
}

// DemagnetizationFactor stays below 1 while the magnets are safe.
func (m Motor) DemagnetizationFactor(iq, id float64) float64 {
	return electrical.DemagnetizationFactor(iq, id, m.DemagnetizationThreshold(), m.DemagnetizationRatio())
}

func (m Motor) Desaturate(effective float64) float64 { return m.Electrical.Desaturate(effective) }

func (m Motor) PhaseCurrentLimit() float64 {
	if m.CurrentLimit > 0 {
		return m.CurrentLimit
	}
	return math.Inf(1)
}

// Weight is the motor mass in kg, zero without a mass model.
func (m Motor) Weight() float64 {
	if m.Mass == nil {
		return 0
	}
	return m.Mass.Total()
}

// RotorInertia in kg·m², zero without a mass model.
func (m Motor) RotorInertia() float64 {
	if m.Mass == nil {
		return 0
	}
	return m.Mass.RotorInertia()
}

// ThermalNetwork evaluates the thermal model at a flow condition.
func (m Motor) ThermalNetwork(flow thermal.Flow) (thermal.Network, error) {
	if m.Thermal == nil || m.Mass == nil {
		return thermal.Network{}, ErrNoThermal
	}
	n, err := m.Thermal.Network(m.Geometry(), *m.Mass, flow)
	if err != nil {
		return thermal.Network{}, fmt.Errorf("motor: %w", err)
	}
	return n, nil
}

// SurfaceSpeed is the rotor surface velocity in m/s at a given rpm.
func (m Motor) SurfaceSpeed(rpm float64) float64 {
	return math.Abs(rpm) / 60 * 2 * math.Pi * m.Geometry().OuterRadius()
}
