package electrical

import (
	"math"

	"github.com/san-kum/powertrain/internal/geometry"
)

// Frame holds multipliers converting measured quantities into the
// amplitude-invariant dq frame used throughout the solver, where copper loss
// is |I|²R with no further 3/2 factor.
type Frame struct {
	R  float64
	L  float64
	Kt float64
}

// LLToDQ converts line-to-line measurements. A line-to-line reading spans two
// star phases or one winding in parallel with two, which lands on the same dq
// values for either termination.
func LLToDQ(geometry.Termination) Frame {
	return Frame{R: 0.75, L: 0.75, Kt: math.Sqrt(3) / 2}
}

// PhaseToDQ converts per-phase quantities: phase to neutral for star, per
// winding for delta.
func PhaseToDQ(t geometry.Termination) Frame {
	if t == geometry.Delta {
		return Frame{R: 0.5, L: 0.5, Kt: math.Sqrt(3) / 2}
	}
	return Frame{R: 1.5, L: 1.5, Kt: 1.5}
}

// KvFromKt converts a torque constant in Nm/A to a speed constant in rpm/V.
func KvFromKt(kt float64) float64 { return 60 / (2 * math.Pi) / kt }

// KtFromKv is the inverse of KvFromKt.
func KtFromKv(kv float64) float64 { return 60 / (2 * math.Pi) / kv }
