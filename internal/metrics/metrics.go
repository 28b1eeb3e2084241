// Package metrics reduces a solved operating map to scalar figures of merit
// and exports them for collection.
package metrics

import (
	"math"

	"github.com/san-kum/powertrain/internal/system"
)

// Point is one feasible cell of an operating map.
type Point struct {
	Torque      float64 // Nm at the output
	RPM         float64
	Bus         float64 // W
	Mechanical  float64 // W
	Dissipation float64 // W
}

type Metric interface {
	Name() string
	Observe(p Point)
	Value() float64
	Reset()
}

// Summarize feeds every feasible cell of res to each metric and returns their
// values by name.
func Summarize(res *system.Result, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	rows, cols := res.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !res.Feasible(i, j) {
				continue
			}
			p := Point{
				Torque:      res.Output.At(i, j),
				RPM:         res.RPM[j],
				Bus:         res.Bus.At(i, j),
				Mechanical:  res.Mechanical.At(i, j),
				Dissipation: res.Copper.At(i, j) + res.Iron.At(i, j),
			}
			for _, m := range ms {
				m.Observe(p)
			}
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Defaults is the standard set reported for a solve.
func Defaults() []Metric {
	return []Metric{
		NewEfficiency(),
		NewPower(),
		NewRegen(),
		NewTopSpeed(),
	}
}

type TopSpeed struct {
	name string
	max  float64
}

func NewTopSpeed() *TopSpeed {
	return &TopSpeed{name: "top_rpm"}
}

func (s *TopSpeed) Name() string { return s.name }

// Observe only counts cells that still deliver forward torque.
func (s *TopSpeed) Observe(p Point) {
	if p.Torque > 0 {
		s.max = math.Max(s.max, math.Abs(p.RPM))
	}
}

func (s *TopSpeed) Value() float64 { return s.max }

func (s *TopSpeed) Reset() { s.max = 0 }
