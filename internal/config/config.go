package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/powertrain/internal/actuator"
	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/bus"
	"github.com/san-kum/powertrain/internal/controller"
	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/gearing"
	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/mass"
	"github.com/san-kum/powertrain/internal/motor"
	"github.com/san-kum/powertrain/internal/numeric"
	"github.com/san-kum/powertrain/internal/system"
	"github.com/san-kum/powertrain/internal/thermal"
)

var ErrUnknownController = errors.New("config: unknown controller")

const (
	DefaultNRPM     = 200
	DefaultNTorque  = 500
	DefaultGridSize = system.DefaultGridSize
	DefaultHorizon  = 60.0
)

type Config struct {
	Motor      MotorConfig      `yaml:"motor"`
	Controller ControllerConfig `yaml:"controller"`
	Battery    BatteryConfig    `yaml:"battery"`
	Gearing    gearing.Gearing  `yaml:"gearing"`
	Bus        bus.Bus          `yaml:"bus"`
	Series     float64          `yaml:"series"`
	Payload    float64          `yaml:"payload"` // kg
	Grid       GridConfig       `yaml:"grid"`
	Thermal    ThermalConfig    `yaml:"thermal"`
}

type MotorConfig struct {
	Geometry   geometry.Options    `yaml:"geometry"`
	Electrical electrical.Absolute `yaml:"electrical"`
	// Mass in kg; zero leaves the motor without mass and thermal models.
	Mass              float64         `yaml:"mass"`
	Thermal           thermal.Options `yaml:"thermal"`
	CurrentLimit      float64         `yaml:"current_limit"`
	CoilTemperature   float64         `yaml:"coil_temperature"`
	MagnetTemperature float64         `yaml:"magnet_temperature"`
}

// ControllerConfig names a catalog controller, or describes one inline when
// Preset is empty. Modulation, if set, overrides the modulation factor.
type ControllerConfig struct {
	Preset      string                `yaml:"preset"`
	Spec        controller.Controller `yaml:"spec"`
	Modulation  controller.Modulation `yaml:"modulation"`
	Utilization float64               `yaml:"utilization"`
}

// BatteryConfig picks a catalog cell, an inline cell, or an ideal source
// when Cell is "ideal".
type BatteryConfig struct {
	Cell        string        `yaml:"cell"`
	Custom      *battery.Cell `yaml:"custom,omitempty"`
	Voltage     float64       `yaml:"voltage"` // ideal source only
	S           float64       `yaml:"s"`
	P           float64       `yaml:"p"`
	ChargeState float64       `yaml:"charge_state"`
}

type GridConfig struct {
	NRPM      int     `yaml:"n_rpm"`
	NTorque   int     `yaml:"n_torque"`
	MaxRPM    float64 `yaml:"max_rpm"`    // zero detects
	MaxTorque float64 `yaml:"max_torque"` // zero detects
	GridSize  int     `yaml:"gridsize"`
}

type ThermalConfig struct {
	Linear  float64 `yaml:"linear"`  // m/s
	Horizon float64 `yaml:"horizon"` // s
}

func DefaultConfig() *Config {
	return &Config{
		Motor: MotorConfig{
			CoilTemperature:   motor.AmbientTemperature,
			MagnetTemperature: motor.AmbientTemperature,
			Thermal:           thermal.Options{Kind: thermal.KindShelled},
		},
		Controller: ControllerConfig{Preset: "ideal"},
		Battery:    BatteryConfig{Cell: "ideal", Voltage: 48, S: 1, P: 1, ChargeState: 1},
		Gearing:    gearing.Direct(),
		Bus:        bus.Default(),
		Series:     1,
		Grid: GridConfig{
			NRPM:     DefaultNRPM,
			NTorque:  DefaultNTorque,
			GridSize: DefaultGridSize,
		},
		Thermal: ThermalConfig{Horizon: DefaultHorizon},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildMotor builds the motor with whichever sub-models the config describes.
func (c *Config) BuildMotor() (motor.Motor, error) {
	g, err := geometry.Create(c.Motor.Geometry)
	if err != nil {
		return motor.Motor{}, err
	}
	e, err := electrical.FromAbsolute(g, c.Motor.Electrical)
	if err != nil {
		return motor.Motor{}, err
	}
	m := motor.New(e).WithTemperatures(c.Motor.CoilTemperature, c.Motor.MagnetTemperature)
	m.CurrentLimit = c.Motor.CurrentLimit
	if c.Motor.Mass > 0 {
		ms, err := mass.Infer(g, c.Motor.Mass, nil)
		if err != nil {
			return motor.Motor{}, err
		}
		model, err := thermal.New(g, c.Motor.Thermal)
		if err != nil {
			return motor.Motor{}, err
		}
		m = m.WithMass(ms).WithThermal(model)
	}
	return m, nil
}

func (c *Config) BuildController() (controller.Controller, error) {
	ctrl := c.Controller.Spec
	if c.Controller.Preset != "" {
		mk, ok := Controllers[c.Controller.Preset]
		if !ok {
			return controller.Controller{}, fmt.Errorf("%w: %q", ErrUnknownController, c.Controller.Preset)
		}
		ctrl = mk()
	}
	if c.Controller.Modulation != "" {
		u := c.Controller.Utilization
		if u == 0 {
			u = 1
		}
		var err error
		if ctrl, err = ctrl.WithModulation(c.Controller.Modulation, u); err != nil {
			return controller.Controller{}, err
		}
	}
	return ctrl, ctrl.Validate()
}

func (c *Config) BuildBattery() (battery.Battery, error) {
	b := c.Battery
	if b.Cell == "ideal" {
		return battery.Ideal(b.Voltage), nil
	}
	var cell battery.Cell
	if b.Custom != nil {
		cell = *b.Custom
	} else {
		var err error
		if cell, err = battery.GetCell(b.Cell); err != nil {
			return battery.Battery{}, err
		}
	}
	pack, err := battery.New(cell, b.S, b.P)
	if err != nil {
		return battery.Battery{}, err
	}
	if b.ChargeState != 0 {
		pack = pack.WithChargeState(b.ChargeState)
	}
	return pack, nil
}

// Build assembles and validates the described system.
func (c *Config) Build() (system.System, error) {
	m, err := c.BuildMotor()
	if err != nil {
		return system.System{}, fmt.Errorf("motor: %w", err)
	}
	ctrl, err := c.BuildController()
	if err != nil {
		return system.System{}, fmt.Errorf("controller: %w", err)
	}
	b, err := c.BuildBattery()
	if err != nil {
		return system.System{}, fmt.Errorf("battery: %w", err)
	}

	a := actuator.New(m, ctrl)
	a.Gearing = c.Gearing
	a.Bus = c.Bus
	if c.Series > 0 {
		a.Series = c.Series
	}
	s := system.New(b, a)
	if c.Payload > 0 {
		s = s.WithLoad(system.Payload(c.Payload))
	}
	if err := s.Validate(); err != nil {
		return system.System{}, err
	}
	return s, nil
}

// Ranges returns the configured grid axes, falling back to env for any
// bound left unset.
func (c *Config) Ranges(env system.Envelope) (trange, rpm []float64) {
	maxRPM, maxTorque := c.Grid.MaxRPM, c.Grid.MaxTorque
	if maxRPM == 0 {
		maxRPM = env.MaxRPM
	}
	if maxTorque == 0 {
		maxTorque = env.MaxTorque
	}
	return numeric.Linspace(-maxTorque, maxTorque, c.Grid.NTorque+1), numeric.Linspace(0, maxRPM, c.Grid.NRPM+1)
}

// NeedsDetect reports whether Ranges requires a detected envelope.
func (c *Config) NeedsDetect() bool {
	return c.Grid.MaxRPM == 0 || c.Grid.MaxTorque == 0
}
