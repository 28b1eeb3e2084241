package config

import (
	"math"
	"sort"

	"github.com/san-kum/powertrain/internal/controller"
	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/thermal"
)

// Controllers is the built-in controller catalog.
var Controllers = map[string]func() controller.Controller{
	"ideal": controller.Ideal,

	"phaserunner": func() controller.Controller {
		return controller.Controller{
			Name:               "phaserunner",
			PhaseCurrentLimit:  90,
			PowerLimit:         5000,
			BusVoltageLimit:    75,
			InternalResistance: 3e-3,
			RippleFrequency:    48e3,
			FrequencyLimit:     1000,
			ModulationFactor:   1 / math.Sqrt(3),
			FieldWeakening:     true,
			Weight:             0.26,
			Length:             99e-3,
			Width:              40e-3,
			Height:             34e-3,
		}
	},
	"moteus-n1": func() controller.Controller {
		return controller.Controller{
			Name:               "moteus-n1",
			PhaseCurrentLimit:  100,
			PowerLimit:         1200,
			BusVoltageLimit:    54,
			InternalResistance: 3e-3,
			RippleFrequency:    48e3,
			FrequencyLimit:     3000,
			ModulationFactor:   0.9 / math.Sqrt(3),
			Weight:             14.6e-3,
			Length:             46e-3,
			Width:              46e-3,
			Height:             8e-3,
		}
	},
	"moteus-c1": func() controller.Controller {
		return controller.Controller{
			Name:               "moteus-c1",
			PhaseCurrentLimit:  20,
			PowerLimit:         100,
			BusVoltageLimit:    51,
			InternalResistance: 3e-3,
			RippleFrequency:    48e3,
			FrequencyLimit:     3000,
			ModulationFactor:   0.9 / math.Sqrt(3),
			Weight:             8.9e-3,
			Length:             38e-3,
			Width:              38e-3,
			Height:             9e-3,
		}
	},
}

// Presets builds fresh configs, so callers may modify what they get.
var Presets = map[string]func() *Config{
	"grin-hub": func() *Config {
		cfg := DefaultConfig()
		cfg.Motor.Geometry = geometry.Options{
			Poles: 46, Slots: 42, Turns: 5,
			GapDiameter: 199e-3, GapLength: 27e-3, SlotDepth: 12e-3,
			MagnetHeight: 3e-3, Airgap: 0.7e-3,
		}
		cfg.Motor.Electrical = electrical.Absolute{
			KtDQ: 0.79, RLL: 0.1, LLL: 260e-6,
			Drag: &electrical.Drag{D0: 0.45, D1: 0.0005},
		}
		cfg.Motor.Mass = 4.0
		cfg.Motor.Thermal = thermal.Options{Kind: thermal.KindShelled, Shell: thermal.DefaultShellOptions()}
		cfg.Controller = ControllerConfig{Preset: "phaserunner"}
		cfg.Battery = BatteryConfig{Cell: "samsung-21700", S: 16, P: 4, ChargeState: 1}
		cfg.Payload = 100
		cfg.Thermal.Linear = 8
		return cfg
	},
	"mj5208": func() *Config {
		cfg := DefaultConfig()
		cfg.Motor.Geometry = geometry.Options{
			PolePairs: 7, SlotTriplets: 4, Turns: 7, CoilFill: 0.45,
			GapDiameter: 54e-3, GapLength: 8e-3,
			SlotDepthFraction: 0.4, SlotWidthFraction: 0.4,
			MagnetHeight: 2e-3,
		}
		cfg.Motor.Electrical = electrical.Absolute{Kv: 330, RLL: 50e-3, LLL: 30e-6}
		cfg.Motor.Mass = 0.193
		cfg.Motor.Thermal = thermal.Options{Kind: thermal.KindBasic, K0: 0.25}
		cfg.Controller = ControllerConfig{Preset: "moteus-n1"}
		cfg.Battery = BatteryConfig{Cell: "ideal", Voltage: 48, S: 1, P: 1, ChargeState: 1}
		return cfg
	},
	"tmotor-u8": func() *Config {
		cfg := DefaultConfig()
		cfg.Motor.Geometry = geometry.Options{
			PolePairs: 21, SlotTriplets: 12, Turns: 5,
			GapRadius: 35e-3, GapLength: 12e-3,
			SlotDepthFraction: 0.2, SlotWidthFraction: 0.5,
			MagnetHeight: 1.5e-3, Airgap: 0.5e-3, StructureThickness: 1e-3,
		}
		cfg.Motor.Electrical = electrical.Absolute{Kv: 150, RLL: 86e-3, LLL: 40e-6}
		cfg.Motor.Mass = 0.273
		shell := thermal.DefaultShellOptions()
		shell.Statorade = 0
		shell.Vented = 1
		cfg.Motor.Thermal = thermal.Options{Kind: thermal.KindShelled, Shell: shell}
		cfg.Controller = ControllerConfig{Preset: "moteus-n1"}
		cfg.Battery = BatteryConfig{Cell: "samsung-21700", S: 12, P: 1, ChargeState: 1}
		cfg.Thermal.Linear = 10
		return cfg
	},
	"ideal": func() *Config {
		cfg := DefaultConfig()
		cfg.Motor.Geometry = geometry.Options{
			SlotTriplets: 17, PolePairs: 23, GapRadius: 0.1, GapLength: 0.027, SlotDepth: 0.02,
		}
		cfg.Motor.Electrical = electrical.Absolute{
			KtDQ:                   1,
			RDQ:                    0.1,
			LDQ:                    2e-4,
			Drag:                   &electrical.Drag{},
			SaturationCurrent:      math.Inf(1),
			DemagnetizationCurrent: math.Inf(1),
		}
		cfg.Motor.Mass = 4.5
		return cfg
	},
}

// GetPreset returns a fresh copy of a named preset, or nil.
func GetPreset(name string) *Config {
	mk, ok := Presets[name]
	if !ok {
		return nil
	}
	return mk()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListControllers() []string {
	names := make([]string, 0, len(Controllers))
	for name := range Controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
