// Package battery models a pack of identical cells in an S×P arrangement.
package battery

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalid     = errors.New("battery: invalid parameter")
	ErrOutOfRange  = errors.New("battery: voltage outside cell range")
	ErrUnknownCell = errors.New("battery: unknown cell")
)

type Cell struct {
	Name           string  `yaml:"name"`
	MaximumVoltage float64 `yaml:"maximum_voltage"`
	NominalVoltage float64 `yaml:"nominal_voltage"`
	MinimumVoltage float64 `yaml:"minimum_voltage"`
	Resistance     float64 `yaml:"resistance"`     // Ω
	Capacity       float64 `yaml:"capacity"`       // Ah
	PeakDischarge  float64 `yaml:"peak_discharge"` // C
	PeakCharge     float64 `yaml:"peak_charge"`    // C
	Mass           float64 `yaml:"mass"`           // kg
}

func (c Cell) PeakDischargeCurrent() float64 { return c.PeakDischarge * c.Capacity }
func (c Cell) PeakChargeCurrent() float64    { return c.PeakCharge * c.Capacity }

// Voltage is linear in charge state between the minimum and maximum voltage.
func (c Cell) Voltage(state float64) float64 {
	return c.MinimumVoltage + (c.MaximumVoltage-c.MinimumVoltage)*state
}

// StateFromVoltage inverts Voltage. A cell with a flat curve is always full.
func (c Cell) StateFromVoltage(v float64) float64 {
	span := c.MaximumVoltage - c.MinimumVoltage
	if span == 0 {
		return 1
	}
	return (v - c.MinimumVoltage) / span
}

func (c Cell) Validate() error {
	if !(c.MinimumVoltage > 0) || c.MinimumVoltage > c.NominalVoltage || c.NominalVoltage > c.MaximumVoltage {
		return fmt.Errorf("%w: cell voltages %g/%g/%g", ErrInvalid, c.MinimumVoltage, c.NominalVoltage, c.MaximumVoltage)
	}
	if c.Resistance < 0 || !(c.Capacity > 0) || !(c.PeakDischarge > 0) || c.PeakCharge < 0 {
		return fmt.Errorf("%w: cell %q ratings", ErrInvalid, c.Name)
	}
	return nil
}

type Battery struct {
	Cell        Cell    `yaml:"cell"`
	S           float64 `yaml:"s"`
	P           float64 `yaml:"p"`
	ChargeState float64 `yaml:"charge_state"`
}

func New(cell Cell, s, p float64) (Battery, error) {
	b := Battery{Cell: cell, S: s, P: p, ChargeState: 1}
	if err := b.Validate(); err != nil {
		return Battery{}, err
	}
	return b, nil
}

func (b Battery) Validate() error {
	if err := b.Cell.Validate(); err != nil {
		return err
	}
	if !(b.S >= 1) || !(b.P >= 1) {
		return fmt.Errorf("%w: %gS%gP", ErrInvalid, b.S, b.P)
	}
	if b.ChargeState < 0 || b.ChargeState > 1 {
		return fmt.Errorf("%w: charge state %g", ErrInvalid, b.ChargeState)
	}
	return nil
}

func (b Battery) WithChargeState(s float64) Battery {
	b.ChargeState = s
	return b
}

func (b Battery) Weight() float64     { return b.S * b.P * b.Cell.Mass }
func (b Battery) Voltage() float64    { return b.S * b.Cell.Voltage(b.ChargeState) }
func (b Battery) Resistance() float64 { return b.Cell.Resistance * b.S / b.P }
func (b Battery) Ah() float64         { return b.P * b.Cell.Capacity }

// Capacity is the nominal energy in Wh.
func (b Battery) Capacity() float64 { return b.S * b.P * b.Cell.Capacity * b.Cell.NominalVoltage }

func (b Battery) PeakDischargeCurrent() float64 { return b.Cell.PeakDischargeCurrent() * b.P }
func (b Battery) PeakChargeCurrent() float64    { return b.Cell.PeakChargeCurrent() * b.P }
func (b Battery) PeakDischargePower() float64   { return b.PeakDischargeCurrent() * b.Voltage() }
func (b Battery) PeakChargePower() float64      { return b.PeakChargeCurrent() * b.Voltage() }

// ChargeToVoltage returns the pack at the charge state giving pack voltage v.
func (b Battery) ChargeToVoltage(v float64) (Battery, error) {
	s := b.Cell.StateFromVoltage(v / b.S)
	if s < 0 || s > 1 || math.IsNaN(s) {
		return b, fmt.Errorf("%w: %g V for %gS %s", ErrOutOfRange, v, b.S, b.Cell.Name)
	}
	return b.WithChargeState(s), nil
}

// Define sizes the smallest pack that reaches voltage v and holds at least
// wh watt hours, charged to exactly v.
func Define(v, wh float64, cell Cell) (Battery, error) {
	if !(v > 0) || wh < 0 {
		return Battery{}, fmt.Errorf("%w: %g V, %g Wh", ErrInvalid, v, wh)
	}
	s := math.Ceil(v / cell.MaximumVoltage)
	n := wh / (cell.Capacity * cell.NominalVoltage)
	p := math.Max(1, math.Ceil(n/s))
	b, err := New(cell, s, p)
	if err != nil {
		return Battery{}, err
	}
	return b.ChargeToVoltage(v)
}
