// Package system composes a battery and an actuator and solves for the best
// realizable operating point over a grid of output torque and speed.
package system

import (
	"fmt"

	"github.com/san-kum/powertrain/internal/actuator"
	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/geometry"
)

// Load is whatever the actuator drives. Only its weight enters the system.
type Load interface {
	Weight() float64
}

// Payload is a load known only by its mass in kg.
type Payload float64

func (p Payload) Weight() float64 { return float64(p) }

// System is an immutable value; every With* method and Set return a copy.
type System struct {
	Battery  battery.Battery
	Actuator actuator.Actuator
	Load     Load
}

func New(b battery.Battery, a actuator.Actuator) System {
	return System{Battery: b, Actuator: a}
}

func (s System) Validate() error {
	if err := s.Battery.Validate(); err != nil {
		return err
	}
	if err := s.Actuator.Controller.Validate(); err != nil {
		return err
	}
	if err := s.Actuator.Gearing.Validate(); err != nil {
		return err
	}
	if !(s.Actuator.Series >= 1) {
		return fmt.Errorf("%w: series = %g", ErrInvalid, s.Actuator.Series)
	}
	return nil
}

// Weight is the total mass in kg of everything that moves with the system.
func (s System) Weight() float64 {
	w := s.Battery.Weight() + s.Actuator.Weight()
	if s.Load != nil {
		w += s.Load.Weight()
	}
	return w
}

func (s System) WithLoad(l Load) System {
	s.Load = l
	return s
}

func (s System) WithChargeState(state float64) System {
	s.Battery = s.Battery.WithChargeState(state)
	return s
}

func (s System) WithTemperatures(coil, magnet float64) System {
	s.Actuator.Motor = s.Actuator.Motor.WithTemperatures(coil, magnet)
	return s
}

// RescaleMotor propagates a geometry change to the motor's electrical, mass
// and thermal models.
func (s System) RescaleMotor(scale geometry.Scale) System {
	s.Actuator.Motor = s.Actuator.Motor.Rescale(scale)
	return s
}
