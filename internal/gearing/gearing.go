// Package gearing maps output shaft conditions to motor shaft conditions.
package gearing

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalid = errors.New("gearing: invalid parameter")

type Gearing struct {
	Ratio       float64 `yaml:"ratio"` // motor rpm per output rpm
	Efficiency  float64 `yaml:"efficiency"`
	TorqueLimit float64 `yaml:"torque_limit"` // Nm at the output
	Weight      float64 `yaml:"weight"`
	Thickness   float64 `yaml:"thickness"`
}

// Direct is a lossless 1:1 coupling.
func Direct() Gearing {
	return Gearing{Ratio: 1, Efficiency: 1, TorqueLimit: math.Inf(1)}
}

func (g Gearing) Validate() error {
	if !(g.Ratio > 0) {
		return fmt.Errorf("%w: ratio = %g", ErrInvalid, g.Ratio)
	}
	if !(g.Efficiency > 0 && g.Efficiency <= 1) {
		return fmt.Errorf("%w: efficiency = %g", ErrInvalid, g.Efficiency)
	}
	if !(g.TorqueLimit > 0) {
		return fmt.Errorf("%w: torque_limit = %g", ErrInvalid, g.TorqueLimit)
	}
	return nil
}

// loss is the efficiency factor applied to torque in the direction of power
// flow: motoring loses torque on the way out, generating on the way in.
func (g Gearing) loss(rpm, torque float64) float64 {
	if rpm*torque >= 0 {
		return g.Efficiency
	}
	return 1 / g.Efficiency
}

// Forward maps motor shaft rpm and torque to the output shaft.
func (g Gearing) Forward(rpm, torque float64) (float64, float64) {
	return rpm / g.Ratio, torque * g.Ratio * g.loss(rpm, torque)
}

// Backward maps output shaft rpm and torque to the motor shaft.
func (g Gearing) Backward(rpm, torque float64) (float64, float64) {
	return rpm * g.Ratio, torque / (g.Ratio * g.loss(rpm, torque))
}
