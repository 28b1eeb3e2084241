// Package numeric holds the small array helpers shared by the solver and its
// consumers. Infeasible results are NaN, so reductions here skip NaN.
package numeric

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linspace returns n evenly spaced values from lo to hi inclusive. n == 1
// yields {lo}.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// LinspaceOpen is Linspace with the endpoint hi excluded.
func LinspaceOpen(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	step := (hi - lo) / float64(n)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}

// RoundSignificant rounds x up in magnitude to d significant digits.
func RoundSignificant(x float64, d int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	shift := math.Pow(10, math.Floor(math.Log10(math.Abs(x)))-float64(d)+1)
	return math.Copysign(math.Ceil(math.Abs(x)/shift)*shift, x)
}

// NaNMin returns the smallest non-NaN value, or NaN if there is none.
func NaNMin(xs []float64) float64 {
	m := math.NaN()
	for _, x := range xs {
		if !math.IsNaN(x) && (math.IsNaN(m) || x < m) {
			m = x
		}
	}
	return m
}

// NaNMax returns the largest non-NaN value, or NaN if there is none.
func NaNMax(xs []float64) float64 {
	m := math.NaN()
	for _, x := range xs {
		if !math.IsNaN(x) && (math.IsNaN(m) || x > m) {
			m = x
		}
	}
	return m
}

// NaNMean averages the non-NaN values, or returns NaN if there are none.
func NaNMean(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if !math.IsNaN(x) {
			sum += x
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// NaNFraction is the share of NaN entries.
func NaNFraction(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}

// Interp linearly interpolates y(x) at xq over increasing xs, clamping at the
// ends.
func Interp(xq float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if xq <= xs[0] {
		return ys[0]
	}
	if xq >= xs[n-1] {
		return ys[n-1]
	}
	i := floats.Within(xs, xq)
	if i < 0 {
		return math.NaN()
	}
	t := (xq - xs[i]) / (xs[i+1] - xs[i])
	return ys[i] + t*(ys[i+1]-ys[i])
}
