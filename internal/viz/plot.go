package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/numeric"
	"github.com/san-kum/powertrain/internal/system"
)

// Envelope returns, per speed column, the largest motoring and the largest
// braking output torque. Columns without a feasible cell are NaN.
func Envelope(res *system.Result) (motoring, braking []float64) {
	_, cols := res.Dims()
	motoring = make([]float64, cols)
	braking = make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, res.Output)
		motoring[j] = numeric.NaNMax(col)
		braking[j] = numeric.NaNMin(col)
	}
	return motoring, braking
}

// PeakEfficiency is the best efficiency per speed column.
func PeakEfficiency(res *system.Result) []float64 {
	eff := res.Efficiency()
	_, cols := eff.Dims()
	out := make([]float64, cols)
	for j := range out {
		out[j] = numeric.NaNMax(mat.Col(nil, j, eff))
	}
	return out
}

// ThermalLimit is, per speed column, the motoring output torque at which the
// temperature rise in tmap reaches level. Columns that stay below the level
// are limited by the envelope instead.
func ThermalLimit(res *system.Result, tmap *mat.Dense, level float64) []float64 {
	rows, cols := res.Dims()
	i0 := 0
	for i0 < rows && res.Torque[i0] < 0 {
		i0++
	}
	motoring, _ := Envelope(res)
	if i0 == rows {
		return motoring
	}

	temp := tmap.Slice(i0, rows, 0, cols).(*mat.Dense)
	out := system.Crossing(temp, level)(res.Output.Slice(i0, rows, 0, cols).(*mat.Dense))
	for j := range out {
		if numeric.NaNMax(mat.Col(nil, j, temp)) < level {
			out[j] = motoring[j]
		}
	}
	return out
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

func axis(res *system.Result) string {
	return fmt.Sprintf("rpm %.0f .. %.0f", res.RPM[0], res.RPM[len(res.RPM)-1])
}

// PlotEnvelope charts the motoring and braking torque envelope over speed.
func PlotEnvelope(res *system.Result, w, h int) string {
	motoring, braking := Envelope(res)
	if !finite(motoring) {
		return "no feasible operating points"
	}
	return asciigraph.PlotMany([][]float64{motoring, braking},
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption("output torque [Nm], "+axis(res)),
	)
}

// PlotEfficiency charts the peak efficiency over speed in percent.
func PlotEfficiency(res *system.Result, w, h int) string {
	eff := PeakEfficiency(res)
	if !finite(eff) {
		return "no feasible operating points"
	}
	for i := range eff {
		eff[i] *= 100
	}
	return asciigraph.Plot(eff,
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.LowerBound(0),
		asciigraph.Caption("peak efficiency [%], "+axis(res)),
	)
}

// PlotThermal charts the envelope against the torque that reaches a coil
// temperature rise of level.
func PlotThermal(res *system.Result, tmap *mat.Dense, level float64, w, h int) string {
	motoring, _ := Envelope(res)
	if !finite(motoring) {
		return "no feasible operating points"
	}
	limit := ThermalLimit(res, tmap, level)
	return asciigraph.PlotMany([][]float64{motoring, limit},
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption(fmt.Sprintf("output torque [Nm] and %.0f K rise limit, %s", level, axis(res))),
	)
}
