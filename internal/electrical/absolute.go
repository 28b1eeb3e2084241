package electrical

import (
	"fmt"
	"math"

	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/scaled"
)

// Drag holds absolute iron loss coefficients: D0 in Nm and D1 in Nm/rpm.
type Drag struct {
	D0 float64 `yaml:"d0"`
	D1 float64 `yaml:"d1"`
}

// Absolute is a motor's measured or catalog electrical data. Exactly one field
// of each of the torque constant, resistance and inductance groups must be set.
// Line-to-line and per-phase values are converted to the dq frame according
// to the geometry's termination.
type Absolute struct {
	KtDQ    float64 `yaml:"kt_dq"`    // Nm/A
	KeLL    float64 `yaml:"ke_ll"`    // line-to-line back-EMF constant, V·s/rad
	KePhase float64 `yaml:"ke_phase"` // per-phase back-EMF constant, V·s/rad
	Kv      float64 `yaml:"kv"`       // line-to-line, rpm/V

	RDQ    float64 `yaml:"r_dq"`
	RLL    float64 `yaml:"r_ll"`
	RPhase float64 `yaml:"r_phase"`

	LDQ    float64 `yaml:"l_dq"`
	LLL    float64 `yaml:"l_ll"`
	LPhase float64 `yaml:"l_phase"`

	// Drag is optional; nil selects the calibrated defaults.
	Drag *Drag `yaml:"drag,omitempty"`

	SaturationCurrent      float64 `yaml:"saturation_current"`      // A, zero selects default
	DemagnetizationCurrent float64 `yaml:"demagnetization_current"` // A, zero selects default
	SalienceRatio          float64 `yaml:"salience_ratio"`
	DemagnetizationRatio   float64 `yaml:"demagnetization_ratio"` // zero selects default
}

type candidate struct {
	name  string
	value float64
	scale float64
}

func resolve(group string, cands ...candidate) (float64, error) {
	var (
		found string
		value float64
	)
	for _, c := range cands {
		if c.value == 0 {
			continue
		}
		if found != "" {
			return 0, fmt.Errorf("%w: %s given as both %s and %s", ErrConflict, group, found, c.name)
		}
		if !(c.value > 0) || math.IsInf(c.value, 0) {
			return 0, fmt.Errorf("%w: %s = %g", ErrInvalid, c.name, c.value)
		}
		found, value = c.name, c.value*c.scale
	}
	if found == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissing, group)
	}
	return value, nil
}

// FromAbsolute normalizes absolute data into the dq frame, splits resistance
// and inductance into coaxial and end winding parts, and stores everything as
// dimensionless coefficients scaled by g.
func FromAbsolute(g geometry.Geometry, a Absolute) (Electrical, error) {
	ll := LLToDQ(g.Termination)
	ph := PhaseToDQ(g.Termination)

	kv := 0.0
	if a.Kv != 0 {
		kv = KtFromKv(a.Kv)
	}
	kt, err := resolve("torque constant",
		candidate{"kt_dq", a.KtDQ, 1},
		candidate{"ke_ll", a.KeLL, ll.Kt},
		candidate{"ke_phase", a.KePhase, ph.Kt},
		candidate{"kv", kv, 1},
	)
	if err != nil {
		return Electrical{}, err
	}
	r, err := resolve("resistance",
		candidate{"r_dq", a.RDQ, 1},
		candidate{"r_ll", a.RLL, ll.R},
		candidate{"r_phase", a.RPhase, ph.R},
	)
	if err != nil {
		return Electrical{}, err
	}
	l, err := resolve("inductance",
		candidate{"l_dq", a.LDQ, 1},
		candidate{"l_ll", a.LLL, ll.L},
		candidate{"l_phase", a.LPhase, ph.L},
	)
	if err != nil {
		return Electrical{}, err
	}
	if a.SalienceRatio <= -1 {
		return Electrical{}, fmt.Errorf("%w: salience_ratio = %g", ErrInvalid, a.SalienceRatio)
	}

	rco, rew := g.CoilRatios()
	lco, lew := g.FluxRatios()

	attrs := map[Attr]float64{
		Kt:          kt,
		RCoaxial:    r * rco,
		REndWinding: r * rew,
		LCoaxial:    l * lco,
		LEndWinding: l * lew,
	}
	nondim := map[Attr]float64{
		SalienceRatio:        a.SalienceRatio,
		DemagnetizationRatio: DefaultDemagnetizationRatio,
	}
	if a.DemagnetizationRatio != 0 {
		nondim[DemagnetizationRatio] = a.DemagnetizationRatio
	}
	if a.Drag == nil {
		nondim[D0] = DefaultD0
		nondim[D1] = DefaultD1
	} else {
		attrs[D0] = a.Drag.D0
		attrs[D1] = a.Drag.D1 * 60 // per rotor Hz
	}
	if a.SaturationCurrent != 0 {
		attrs[Saturation] = a.SaturationCurrent
	} else {
		nondim[Saturation] = DefaultSaturation
	}
	if a.DemagnetizationCurrent != 0 {
		attrs[Demagnetization] = a.DemagnetizationCurrent
	} else {
		nondim[Demagnetization] = DefaultDemagnetization
	}

	s, err := scaled.New(Scaling, contexts(g)...).FromDimensional(attrs)
	if err != nil {
		return Electrical{}, fmt.Errorf("electrical: %w", err)
	}
	e := Electrical{geometry: g, attrs: s.FromDimensionless(nondim)}
	if err := e.check(); err != nil {
		return Electrical{}, err
	}
	return e, nil
}
