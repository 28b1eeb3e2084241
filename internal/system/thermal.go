package system

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/thermal"
)

type ThermalOptions struct {
	Linear  float64 // free stream air velocity, m/s
	Horizon float64 // s; long horizons approach steady state
	Node    string  // reported node, coils by default
	Logger  *zap.Logger
}

// ThermalMap returns the temperature rise of a node after dissipating each
// cell's losses for the horizon. Copper loss heats the coils and iron loss
// the stator. The network is linear, so each column needs just two solves,
// one per heat source.
func ThermalMap(ctx context.Context, s System, res *Result, o ThermalOptions) (*mat.Dense, error) {
	if o.Node == "" {
		o.Node = "coils"
	}
	o.Logger = logging.OrNop(o.Logger)
	m := s.Actuator.Motor
	rows, cols := res.Dims()
	out := mat.NewDense(rows, cols, nil)

	for j, r := range res.RPM {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		motorRPM, _ := s.Actuator.Gearing.Backward(r, 0)
		n, err := m.ThermalNetwork(thermal.Flow{Linear: o.Linear, Circumferential: m.SurfaceSpeed(motorRPM)})
		if err != nil {
			return nil, err
		}
		perCopper, err := n.Solve(map[string]float64{"coils": 1}, o.Horizon)
		if err != nil {
			return nil, fmt.Errorf("rpm %g: %w", r, err)
		}
		perIron, err := n.Solve(map[string]float64{"stator": 1}, o.Horizon)
		if err != nil {
			return nil, fmt.Errorf("rpm %g: %w", r, err)
		}
		kc, ok := perCopper[o.Node]
		if !ok {
			return nil, fmt.Errorf("%w: %s", thermal.ErrUnknownNode, o.Node)
		}
		ki := perIron[o.Node]
		for i := 0; i < rows; i++ {
			c, fe := res.Copper.At(i, j), res.Iron.At(i, j)
			if math.IsNaN(c) {
				out.Set(i, j, math.NaN())
				continue
			}
			out.Set(i, j, c*kc+fe*ki)
		}
	}
	o.Logger.Debug("thermal map solved",
		zap.String("node", o.Node),
		zap.Float64("horizon", o.Horizon),
		zap.Int("speeds", cols),
	)
	return out, nil
}
