package gearing

import (
	"errors"
	"math"
	"testing"
)

func TestLosslessRoundTrip(t *testing.T) {
	g := Gearing{Ratio: 4.5, Efficiency: 1, TorqueLimit: 100}
	for _, c := range [][2]float64{{0, 0}, {300, 12}, {-300, 12}, {120, -7}, {0, 40}} {
		rpm, torque := g.Forward(g.Backward(c[0], c[1]))
		if math.Abs(rpm-c[0]) > 1e-12 || math.Abs(torque-c[1]) > 1e-12 {
			t.Errorf("round trip of %v gave (%g, %g)", c, rpm, torque)
		}
	}
}

func TestLossyRoundTrip(t *testing.T) {
	g := Gearing{Ratio: 3, Efficiency: 0.9, TorqueLimit: 100}
	for _, c := range [][2]float64{{300, 12}, {-300, 12}, {120, -7}} {
		rpm, torque := g.Forward(g.Backward(c[0], c[1]))
		if math.Abs(rpm-c[0]) > 1e-12 || math.Abs(torque-c[1]) > 1e-12 {
			t.Errorf("round trip of %v gave (%g, %g)", c, rpm, torque)
		}
	}
}

func TestEfficiencyDirection(t *testing.T) {
	g := Gearing{Ratio: 2, Efficiency: 0.8, TorqueLimit: 100}

	// motoring: the motor must supply more than the ideal share
	_, motoring := g.Backward(100, 10)
	if math.Abs(motoring-6.25) > 1e-12 {
		t.Errorf("motoring torque %g, want 6.25", motoring)
	}
	// braking: losses help, so the motor absorbs less
	_, braking := g.Backward(100, -10)
	if math.Abs(braking+4) > 1e-12 {
		t.Errorf("braking torque %g, want -4", braking)
	}
}

func TestValidate(t *testing.T) {
	if err := Direct().Validate(); err != nil {
		t.Error(err)
	}
	if err := (Gearing{Ratio: 1, Efficiency: 1.2, TorqueLimit: 1}).Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
