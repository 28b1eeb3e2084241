package config

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/system"
	"github.com/san-kum/powertrain/internal/thermal"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Grid.NRPM <= 0 || cfg.Grid.NTorque <= 0 {
		t.Error("grid should be positive")
	}
	if cfg.Series != 1 {
		t.Errorf("expected series 1, got %g", cfg.Series)
	}
	if !math.IsInf(cfg.Gearing.TorqueLimit, 1) {
		t.Error("direct drive should not limit torque")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("grin-hub")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Motor.Geometry.Poles != 46 {
		t.Errorf("expected 46 poles, got %g", cfg.Motor.Geometry.Poles)
	}

	// presets are fresh copies
	cfg.Motor.Mass = 99
	if GetPreset("grin-hub").Motor.Mass != 4.0 {
		t.Error("preset was modified through a returned config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	if len(ListControllers()) != len(Controllers) {
		t.Error("controller list incomplete")
	}
}

func TestPresetsBuild(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			s, err := GetPreset(name).Build()
			if err != nil {
				t.Fatal(err)
			}
			if s.Weight() <= 0 {
				t.Errorf("weight = %g", s.Weight())
			}
			if s.Actuator.Motor.Thermal == nil {
				t.Error("expected a thermal model")
			}
			if s.Actuator.PeakTorque() <= 0 {
				t.Errorf("peak torque = %g", s.Actuator.PeakTorque())
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"unknown controller", func(c *Config) { c.Controller.Preset = "nope" }, ErrUnknownController},
		{"unknown cell", func(c *Config) { c.Battery.Cell = "nope" }, battery.ErrUnknownCell},
		{"unknown thermal kind", func(c *Config) { c.Motor.Thermal.Kind = "nope" }, thermal.ErrInvalid},
		{"fractional series", func(c *Config) { c.Series = 0.5 }, system.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetPreset("grin-hub")
			tt.modify(cfg)
			if _, err := cfg.Build(); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestModulationOverride(t *testing.T) {
	cfg := GetPreset("mj5208")
	cfg.Controller.Modulation = "sine"
	c, err := cfg.BuildController()
	if err != nil {
		t.Fatal(err)
	}
	if c.ModulationFactor != 0.5 {
		t.Errorf("expected sine ceiling 0.5, got %g", c.ModulationFactor)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.yaml")
	cfg := GetPreset("tmotor-u8")
	cfg.Grid.MaxRPM = 3000

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Grid.MaxRPM != 3000 || loaded.Motor.Electrical.Kv != 150 {
		t.Errorf("round trip lost values: %+v", loaded.Grid)
	}
	if _, err := loaded.Build(); err != nil {
		t.Fatal(err)
	}
}

func TestRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.NRPM, cfg.Grid.NTorque = 4, 2
	cfg.Grid.MaxTorque = 10
	if !cfg.NeedsDetect() {
		t.Error("max rpm is unset")
	}
	trange, rpm := cfg.Ranges(system.Envelope{MaxRPM: 800, MaxTorque: 99})
	if len(trange) != 3 || trange[0] != -10 || trange[2] != 10 {
		t.Errorf("torque axis %v", trange)
	}
	if len(rpm) != 5 || rpm[4] != 800 {
		t.Errorf("rpm axis %v", rpm)
	}
}
