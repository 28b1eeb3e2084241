package system

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/numeric"
)

type DetectOptions struct {
	FieldWeakening float64 // headroom over the unloaded speed
	Fraction       float64 // infeasible share above which a speed column is dropped
	Padding        float64
	Samples        int
	GridSize       int
	Logger         *zap.Logger
}

func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		FieldWeakening: 3,
		Fraction:       0.95,
		Padding:        1.1,
		Samples:        50,
		GridSize:       DefaultGridSize,
	}
}

// Envelope bounds the interesting region of an operating map.
type Envelope struct {
	MaxRPM    float64
	MaxTorque float64
}

// DetectLimits finds a tight plotting and search envelope by solving a coarse
// grid spanning the peak torque and the field weakened unloaded speed.
func DetectLimits(ctx context.Context, s System, o DetectOptions) (Envelope, error) {
	def := DefaultDetectOptions()
	if o.FieldWeakening == 0 {
		o.FieldWeakening = def.FieldWeakening
	}
	if o.Fraction == 0 {
		o.Fraction = def.Fraction
	}
	if o.Padding == 0 {
		o.Padding = def.Padding
	}
	if o.Samples == 0 {
		o.Samples = def.Samples
	}
	o.Logger = logging.OrNop(o.Logger)

	maxTorque := s.Actuator.PeakTorque() * 1.1
	maxRPM := s.Actuator.MaxRPM(s.Battery.Voltage(), o.FieldWeakening)
	trange := numeric.Linspace(-maxTorque, maxTorque, o.Samples)
	rpm := numeric.LinspaceOpen(0, maxRPM, o.Samples)

	res, err := Limits(ctx, s, trange, rpm, Options{GridSize: o.GridSize, Logger: o.Logger})
	if err != nil {
		return Envelope{}, err
	}

	torque := 0.0
	for _, v := range res.Output.RawMatrix().Data {
		if !math.IsNaN(v) {
			torque = math.Max(torque, math.Abs(v))
		}
	}

	// highest speed column that is not almost entirely infeasible
	top := rpm[len(rpm)-1]
	for j := len(rpm) - 1; j >= 0; j-- {
		if numeric.NaNFraction(mat.Col(nil, j, res.Output)) <= o.Fraction {
			top = rpm[j]
			break
		}
	}

	env := Envelope{
		MaxRPM:    numeric.RoundSignificant(top*o.Padding, 2),
		MaxTorque: numeric.RoundSignificant(torque*o.Padding, 2),
	}
	o.Logger.Info("limits detected",
		zap.Float64("max_rpm", env.MaxRPM),
		zap.Float64("max_torque", env.MaxTorque),
	)
	return env, nil
}
