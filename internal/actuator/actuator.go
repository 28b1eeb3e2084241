// Package actuator combines a motor with its controller, gearing and wiring
// and derives the composite limits the operating point solver works against.
package actuator

import (
	"math"

	"github.com/san-kum/powertrain/internal/bus"
	"github.com/san-kum/powertrain/internal/controller"
	"github.com/san-kum/powertrain/internal/gearing"
	"github.com/san-kum/powertrain/internal/motor"
)

type Actuator struct {
	Motor      motor.Motor
	Controller controller.Controller
	Gearing    gearing.Gearing
	Bus        bus.Bus

	// Series is the number of controllers driving separate windings in series.
	Series float64
}

// New wires a motor to a controller with direct drive and default wiring.
func New(m motor.Motor, c controller.Controller) Actuator {
	return Actuator{
		Motor:      m,
		Controller: c,
		Gearing:    gearing.Direct(),
		Bus:        bus.Default(),
		Series:     1,
	}
}

func (a Actuator) WithMotor(m motor.Motor) Actuator {
	a.Motor = m
	return a
}

func (a Actuator) Weight() float64 {
	return a.Motor.Weight() + a.Controller.Weight*a.Series + a.Bus.Weight() + a.Gearing.Weight
}

func (a Actuator) PhaseCurrentLimit() float64 {
	return math.Min(a.Controller.PhaseCurrentLimit, a.Motor.PhaseCurrentLimit())
}

func (a Actuator) PowerLimit() float64 { return a.Controller.PowerLimit * a.Series }

// EffectiveVoltage maps a bus voltage to the peak dq voltage available to
// field oriented control.
func (a Actuator) EffectiveVoltage(busVoltage float64) float64 {
	v := math.Min(busVoltage, a.Controller.BusVoltageLimit)
	return v * a.Controller.ModulationFactor * a.Series
}

// PhaseResistance is motor plus controller resistance in the dq frame.
func (a Actuator) PhaseResistance() float64 {
	return a.Motor.Resistance() + a.Controller.Resistance()*a.Series
}

// RippleCurrent estimates PWM ripple as RMS over both axes at the given bus
// voltage, capped by the controller's voltage rating.
func (a Actuator) RippleCurrent(busVoltage float64) float64 {
	v := math.Min(busVoltage, a.Controller.BusVoltageLimit) * a.Series
	f := a.Controller.RippleFrequency
	ripple := func(l float64) float64 {
		return v / (2 * f * l) / math.Sqrt2 / math.Sqrt(3)
	}
	return math.Hypot(ripple(a.Motor.Lq()), ripple(a.Motor.Ld()))
}

// PeakTorque is the output torque at the phase current limit with all
// current spent where it does the most good.
func (a Actuator) PeakTorque() float64 {
	amps := a.PhaseCurrentLimit()
	salience := math.Abs(a.Motor.Salience())
	t := amps*a.Motor.Kt() + amps*amps/2*salience*1.5*a.Motor.PolePairs()
	_, t = a.Gearing.Forward(1, t)
	return t
}

// MaxRPM is the unloaded output speed at a bus voltage, times a headroom
// factor for field weakening.
func (a Actuator) MaxRPM(busVoltage, headroom float64) float64 {
	rpm := a.Motor.Kv() * busVoltage * headroom * a.Series
	rpm, _ = a.Gearing.Forward(rpm, 0)
	return rpm
}
