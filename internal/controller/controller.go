// Package controller describes a field oriented motor controller by its
// limits and modulation scheme.
package controller

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownModulation = errors.New("controller: unknown modulation")
	ErrInvalid           = errors.New("controller: invalid parameter")
)

type Modulation string

const (
	Sine        Modulation = "sine"
	SVPWM       Modulation = "svpwm"
	THI         Modulation = "thi" // third harmonic injection
	Trapezoidal Modulation = "trapezoidal"
	SixStep     Modulation = "six-step"
)

// modulationCeilings give the peak phase voltage reachable per volt of bus.
var modulationCeilings = map[Modulation]float64{
	Sine:        0.5,
	SVPWM:       1 / math.Sqrt(3),
	THI:         1 / math.Sqrt(3),
	Trapezoidal: 1 / math.Sqrt(3),
	SixStep:     2 / math.Pi,
}

// ModulationFactor returns the theoretical ceiling of a modulation scheme.
func ModulationFactor(m Modulation) (float64, error) {
	f, ok := modulationCeilings[m]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModulation, m)
	}
	return f, nil
}

type Controller struct {
	Name               string  `yaml:"name"`
	PhaseCurrentLimit  float64 `yaml:"phase_current_limit"` // A
	PowerLimit         float64 `yaml:"power_limit"`         // W
	BusVoltageLimit    float64 `yaml:"bus_voltage_limit"`   // V
	InternalResistance float64 `yaml:"internal_resistance"` // Ω, dq frame
	RippleFrequency    float64 `yaml:"ripple_frequency"`    // Hz
	FrequencyLimit     float64 `yaml:"frequency_limit"`     // electrical Hz
	ModulationFactor   float64 `yaml:"modulation_factor"`
	FieldWeakening     bool    `yaml:"field_weakening"`

	Weight float64 `yaml:"weight"` // kg
	Length float64 `yaml:"length"` // m
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Ideal is an effectively unlimited controller.
func Ideal() Controller {
	return Controller{
		Name:              "ideal",
		PhaseCurrentLimit: 10_000,
		PowerLimit:        1_000_000,
		BusVoltageLimit:   10_000,
		RippleFrequency:   1e6,
		FrequencyLimit:    1e6,
		ModulationFactor:  1 / math.Sqrt(3),
		FieldWeakening:    true,
		Weight:            40e-3,
		Length:            60e-3,
		Width:             40e-3,
		Height:            20e-3,
	}
}

func (c Controller) Resistance() float64 { return c.InternalResistance }

// WithModulation sets the modulation factor to a scheme's ceiling times
// utilization, e.g. 0.9 for firmware that leaves some headroom.
func (c Controller) WithModulation(m Modulation, utilization float64) (Controller, error) {
	f, err := ModulationFactor(m)
	if err != nil {
		return c, err
	}
	c.ModulationFactor = f * utilization
	return c, nil
}

func (c Controller) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"phase_current_limit", c.PhaseCurrentLimit},
		{"power_limit", c.PowerLimit},
		{"bus_voltage_limit", c.BusVoltageLimit},
		{"ripple_frequency", c.RippleFrequency},
		{"frequency_limit", c.FrequencyLimit},
		{"modulation_factor", c.ModulationFactor},
	}
	for _, ch := range checks {
		if !(ch.v > 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalid, ch.name, ch.v)
		}
	}
	if c.InternalResistance < 0 {
		return fmt.Errorf("%w: internal_resistance = %g", ErrInvalid, c.InternalResistance)
	}
	return nil
}
