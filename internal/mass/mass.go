// Package mass breaks a motor's weight down into coils, stator iron, rotor
// and shell, each scaling with its own geometric volume.
package mass

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/scaled"
)

var ErrInvalid = errors.New("mass: invalid parameter")

type Part string

const (
	Coils  Part = "coils"
	Stator Part = "stator"
	Rotor  Part = "rotor"
	Shell  Part = "shell"
)

// Parts lists every part in a fixed order.
var Parts = []Part{Coils, Stator, Rotor, Shell}

const (
	CopperDensity   = 8960
	IronDensity     = 7800
	AluminumDensity = 2700
)

var Scaling = scaled.Table[Part]{
	Coils:  {"coils_volume_fill": 1},
	Stator: {"stator_volume": 1},
	Rotor:  {"rotor_volume": 1},
	Shell:  {"structure_volume": 1},
}

// Densities maps each part to its default density in kg/m³.
var Densities = map[Part]float64{
	Coils:  CopperDensity,
	Stator: IronDensity,
	Rotor:  IronDensity,
	Shell:  AluminumDensity,
}

type Mass struct {
	geometry geometry.Geometry
	attrs    scaled.Scaled[Part]
}

// Infer distributes total kilograms over the parts in proportion to
// volume × density × tuning. Tuning entries default to 1.
func Infer(g geometry.Geometry, total float64, tuning map[Part]float64) (Mass, error) {
	if !(total > 0) || math.IsInf(total, 0) {
		return Mass{}, fmt.Errorf("%w: total = %g", ErrInvalid, total)
	}
	raw := make(map[Part]float64, len(Parts))
	sum := 0.0
	for _, p := range Parts {
		volume, _ := g.Sample(firstQuantity(p))
		t, ok := tuning[p]
		if !ok {
			t = 1
		}
		raw[p] = volume * Densities[p] * t
		sum += raw[p]
	}
	if !(sum > 0) {
		return Mass{}, fmt.Errorf("%w: geometry has no volume", ErrInvalid)
	}
	for p := range raw {
		raw[p] *= total / sum
	}
	s, err := scaled.New(Scaling, g).FromDimensional(raw)
	if err != nil {
		return Mass{}, fmt.Errorf("mass: %w", err)
	}
	return Mass{geometry: g, attrs: s}, nil
}

func firstQuantity(p Part) string {
	for q := range Scaling[p] {
		return q
	}
	return ""
}

func (m Mass) WithGeometry(g geometry.Geometry) Mass {
	m.geometry = g
	m.attrs = m.attrs.WithContexts(g)
	return m
}

func (m Mass) Get(p Part) float64 {
	v, err := m.attrs.Get(p)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (m Mass) Total() float64 {
	total := 0.0
	for _, p := range Parts {
		total += m.Get(p)
	}
	return total
}

// RotorInertia approximates the rotor as a thin ring at the outer radius.
func (m Mass) RotorInertia() float64 {
	r := m.geometry.OuterRadius()
	return r * r * m.Get(Rotor)
}

// Sample exposes part masses to scaling laws, e.g. thermal capacities.
func (m Mass) Sample(key string) (float64, bool) {
	if key == "total" {
		return m.Total(), true
	}
	p := Part(key)
	if _, ok := Scaling[p]; !ok {
		return 0, false
	}
	return m.Get(p), true
}
