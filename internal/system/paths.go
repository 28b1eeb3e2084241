package system

import (
	"fmt"
	"sort"

	"github.com/san-kum/powertrain/internal/geometry"
)

type setter func(s System, v float64) System

func positive(v float64) error {
	if !(v > 0) {
		return fmt.Errorf("%w: %g must be positive", ErrInvalid, v)
	}
	return nil
}

func fraction(v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %g must be within [0, 1]", ErrInvalid, v)
	}
	return nil
}

func unchecked(float64) error { return nil }

func efficiency(v float64) error {
	if !(v > 0 && v <= 1) {
		return fmt.Errorf("%w: %g must be within (0, 1]", ErrInvalid, v)
	}
	return nil
}

type path struct {
	check func(float64) error
	set   setter
}

// paths is the complete set of fields reachable through Set.
var paths = map[string]path{
	"battery.charge_state": {fraction, func(s System, v float64) System { return s.WithChargeState(v) }},
	"battery.s":            {positive, func(s System, v float64) System { s.Battery.S = v; return s }},
	"battery.p":            {positive, func(s System, v float64) System { s.Battery.P = v; return s }},

	"motor.coil_temperature": {unchecked, func(s System, v float64) System {
		return s.WithTemperatures(v, s.Actuator.Motor.MagnetTemperature)
	}},
	"motor.magnet_temperature": {unchecked, func(s System, v float64) System {
		return s.WithTemperatures(s.Actuator.Motor.CoilTemperature, v)
	}},
	"motor.current_limit": {positive, func(s System, v float64) System { s.Actuator.Motor.CurrentLimit = v; return s }},

	"motor.geometry.turns":      {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SetTurns: v}) }},
	"motor.geometry.gap_radius": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SetRadius: v}) }},
	"motor.geometry.gap_length": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SetLength: v}) }},
	"motor.geometry.slot_depth": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SetSlotDepth: v}) }},

	"motor.scale.length":     {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{Length: v}) }},
	"motor.scale.radius":     {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{Radius: v}) }},
	"motor.scale.turns":      {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{Turns: v}) }},
	"motor.scale.slot_depth": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SlotDepth: v}) }},
	"motor.scale.slot_width": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{SlotWidth: v}) }},
	"motor.scale.reluctance": {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{Reluctance: v}) }},
	"motor.scale.frequency":  {positive, func(s System, v float64) System { return s.RescaleMotor(geometry.Scale{Frequency: v}) }},

	"controller.phase_current_limit": {positive, func(s System, v float64) System { s.Actuator.Controller.PhaseCurrentLimit = v; return s }},
	"controller.power_limit":         {positive, func(s System, v float64) System { s.Actuator.Controller.PowerLimit = v; return s }},
	"controller.bus_voltage_limit":   {positive, func(s System, v float64) System { s.Actuator.Controller.BusVoltageLimit = v; return s }},
	"controller.modulation_factor":   {positive, func(s System, v float64) System { s.Actuator.Controller.ModulationFactor = v; return s }},

	"gearing.ratio":      {positive, func(s System, v float64) System { s.Actuator.Gearing.Ratio = v; return s }},
	"gearing.efficiency": {efficiency, func(s System, v float64) System { s.Actuator.Gearing.Efficiency = v; return s }},
	"actuator.series":    {positive, func(s System, v float64) System { s.Actuator.Series = v; return s }},
}

// Set returns a copy of s with the field at path replaced.
func (s System) Set(name string, v float64) (System, error) {
	p, ok := paths[name]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownPath, name)
	}
	if err := p.check(v); err != nil {
		return s, fmt.Errorf("%s: %w", name, err)
	}
	return p.set(s, v), nil
}

// SetAll applies assignments in sorted path order.
func (s System) SetAll(values map[string]float64) (System, error) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	var err error
	for _, k := range names {
		if s, err = s.Set(k, values[k]); err != nil {
			return s, err
		}
	}
	return s, nil
}

func Paths() []string {
	out := make([]string, 0, len(paths))
	for k := range paths {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
