package system

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/numeric"
)

// Target is a desired operating point. Under and Over weight the relative
// error when the system does better or worse than asked.
type Target struct {
	Torque      float64 `yaml:"torque"`
	RPM         float64 `yaml:"rpm"`
	Dissipation float64 `yaml:"dissipation"`
	Under       float64 `yaml:"under"`
	Over        float64 `yaml:"over"`
}

// Scores are relative shortfalls; lower is better and negative beats the targets.
type Scores struct {
	Torque      float64
	Dissipation float64
}

type ScoreOptions struct {
	Samples  int // torque samples, 50 by default
	GridSize int // Id sweep, 100 by default
}

// SampleGraph picks, per column, the row whose value lies closest to the
// column's sample point. Infeasible cells never win.
func SampleGraph(graph *mat.Dense, samples []float64) ([]int, error) {
	rows, cols := graph.Dims()
	if len(samples) != cols {
		return nil, fmt.Errorf("%w: %d samples for %d columns", ErrShape, len(samples), cols)
	}
	idx := make([]int, cols)
	for j := 0; j < cols; j++ {
		best := math.Inf(1)
		for i := 0; i < rows; i++ {
			v := graph.At(i, j)
			if math.IsNaN(v) {
				v = -1e9
			}
			if d := (v - samples[j]) * (v - samples[j]); d < best {
				best, idx[j] = d, i
			}
		}
	}
	return idx, nil
}

// Crossing finds, per column, where graph passes through level and returns a
// function interpolating any same-shaped data at those points.
func Crossing(graph *mat.Dense, level float64) func(data *mat.Dense) []float64 {
	rows, cols := graph.Dims()
	p := make([]int, cols)
	n := make([]int, cols)
	wn := make([]float64, cols)
	for j := 0; j < cols; j++ {
		delta := func(i int) float64 {
			v := graph.At(i, j) - level
			if math.IsNaN(v) {
				return 1e9
			}
			return v
		}
		// two closest rows
		a, b := -1, -1
		for i := 0; i < rows; i++ {
			d := delta(i) * delta(i)
			switch {
			case a < 0 || d < delta(a)*delta(a):
				a, b = i, a
			case b < 0 || d < delta(b)*delta(b):
				b = i
			}
		}
		if b < 0 {
			b = a
		}
		p[j], n[j] = a, b
		dp, dn := delta(a), delta(b)
		if dp != dn {
			wn[j] = math.Max(0, math.Min(1, dp/(dp-dn)))
		}
	}
	return func(data *mat.Dense) []float64 {
		out := make([]float64, cols)
		for j := range out {
			out[j] = data.At(p[j], j)*(1-wn[j]) + data.At(n[j], j)*wn[j]
		}
		return out
	}
}

// Score rates how well a system reaches each target's torque and stays below
// its dissipation. A target with no feasible sample counts as a full shortfall.
func Score(ctx context.Context, s System, targets []Target, o ScoreOptions) (Scores, error) {
	if len(targets) == 0 {
		return Scores{}, fmt.Errorf("%w: no targets", ErrEmptyGrid)
	}
	if o.Samples == 0 {
		o.Samples = 50
	}
	if o.GridSize == 0 {
		o.GridSize = 100
	}
	peak := s.Actuator.PeakTorque() * 1.1
	trange := numeric.Linspace(-peak, peak, o.Samples+1)
	rpm := make([]float64, len(targets))
	want := make([]float64, len(targets))
	for k, t := range targets {
		rpm[k], want[k] = t.RPM, t.Torque
	}

	res, err := Limits(ctx, s, trange, rpm, Options{GridSize: o.GridSize})
	if err != nil {
		return Scores{}, err
	}
	rowOf, err := SampleGraph(res.Output, want)
	if err != nil {
		return Scores{}, err
	}
	diss := res.Dissipation()

	weighted := func(rel func(k int, t Target, i int) float64) float64 {
		var num, den float64
		for k, t := range targets {
			d := rel(k, t, rowOf[k])
			if math.IsNaN(d) {
				d = 1
			}
			w := t.Over
			if d < 0 {
				w = t.Under
			}
			num += d * w
			den += w + 1e-6
		}
		return num / den
	}
	return Scores{
		Torque: weighted(func(k int, t Target, i int) float64 {
			return (t.Torque - res.Output.At(i, k)) / t.Torque
		}),
		Dissipation: weighted(func(k int, t Target, i int) float64 {
			return (diss.At(i, k) - t.Dissipation) / t.Dissipation
		}),
	}, nil
}
