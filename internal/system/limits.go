package system

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/numeric"
)

const DefaultGridSize = 500

// fluxFloor masks Id candidates that cancel the torque producing flux.
const fluxFloor = 1e-3

type Options struct {
	// GridSize is the number of intervals of the Id sweep when field
	// weakening is enabled.
	GridSize int
	// Workers bounds the number of rpm columns solved concurrently.
	Workers int
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Result holds one matrix per quantity, shaped [torque][rpm]. Infeasible
// cells are NaN in every matrix.
type Result struct {
	Torque []float64 // requested output torque, Nm
	RPM    []float64 // output speed

	Copper     *mat.Dense // W, including ripple
	Iron       *mat.Dense // W
	Bus        *mat.Dense // W, positive when discharging
	Mechanical *mat.Dense // W at the motor shaft
	Iq         *mat.Dense // A
	Id         *mat.Dense // A
	Output     *mat.Dense // delivered output torque, Nm

	VoltageRatio    *mat.Dense // required over available dq voltage
	Demagnetization *mat.Dense
	BusVoltage      *mat.Dense // V after sag
}

// NewResult allocates an all infeasible result for the grid.
func NewResult(trange, rpm []float64) *Result {
	r, c := len(trange), len(rpm)
	nan := func() *mat.Dense {
		data := make([]float64, r*c)
		for i := range data {
			data[i] = math.NaN()
		}
		return mat.NewDense(r, c, data)
	}
	return &Result{
		Torque:          append([]float64(nil), trange...),
		RPM:             append([]float64(nil), rpm...),
		Copper:          nan(),
		Iron:            nan(),
		Bus:             nan(),
		Mechanical:      nan(),
		Iq:              nan(),
		Id:              nan(),
		Output:          nan(),
		VoltageRatio:    nan(),
		Demagnetization: nan(),
		BusVoltage:      nan(),
	}
}

// Layers lists the per cell quantities in a fixed order: copper, iron, bus,
// mechanical, iq, id, output, voltage ratio, demagnetization, bus voltage.
func (r *Result) Layers() []*mat.Dense {
	return []*mat.Dense{
		r.Copper, r.Iron, r.Bus, r.Mechanical, r.Iq, r.Id, r.Output,
		r.VoltageRatio, r.Demagnetization, r.BusVoltage,
	}
}

func (r *Result) Dims() (int, int) { return len(r.Torque), len(r.RPM) }

func (r *Result) Feasible(i, j int) bool { return !math.IsNaN(r.Output.At(i, j)) }

// FeasibleFraction is the share of cells with a realizable operating point.
func (r *Result) FeasibleFraction() float64 {
	return 1 - numeric.NaNFraction(r.Output.RawMatrix().Data)
}

// Dissipation is copper plus iron loss.
func (r *Result) Dissipation() *mat.Dense {
	var d mat.Dense
	d.Add(r.Copper, r.Iron)
	return &d
}

// Efficiency is mechanical over bus power when motoring and the inverse when
// generating, within [0, 1]. Cells without shaft power, and braking cells
// that still draw from the bus, are NaN.
func (r *Result) Efficiency() *mat.Dense {
	rows, cols := r.Dims()
	e := mat.NewDense(rows, cols, nil)
	e.Apply(func(i, j int, _ float64) float64 {
		mech, bus := r.Mechanical.At(i, j), r.Bus.At(i, j)
		switch {
		case mech > 0 && bus > 0:
			return mech / bus
		case mech < 0 && bus < 0:
			return bus / mech
		}
		return math.NaN()
	}, e)
	return e
}

// plant caches every system quantity the per cell search needs, so the
// inner loop does no scaling lookups.
type plant struct {
	polePairs float64
	flux      float64
	salience  float64
	ld, lq    float64
	r         float64
	isat      float64

	demagThreshold float64
	demagRatio     float64

	batteryVoltage   float64
	busResistance    float64
	peakDischarge    float64
	peakCharge       float64
	powerLimit       float64
	currentLimit     float64
	frequencyLimit   float64
	torqueLimit      float64
	ripple           float64
	effectiveVoltage func(float64) float64

	ids []float64
}

func newPlant(s System, gridSize int) (*plant, error) {
	a := s.Actuator
	m := a.Motor
	p := &plant{
		polePairs:        m.PolePairs(),
		flux:             m.Flux(),
		salience:         m.Salience(),
		ld:               m.Ld(),
		lq:               m.Lq(),
		r:                a.PhaseResistance(),
		isat:             m.Electrical.SaturationCurrent(),
		demagThreshold:   m.DemagnetizationThreshold(),
		demagRatio:       m.DemagnetizationRatio(),
		batteryVoltage:   s.Battery.Voltage(),
		busResistance:    s.Battery.Resistance() + a.Bus.Resistance(),
		peakDischarge:    s.Battery.PeakDischargePower(),
		peakCharge:       s.Battery.PeakChargePower(),
		powerLimit:       a.PowerLimit(),
		currentLimit:     a.PhaseCurrentLimit(),
		frequencyLimit:   a.Controller.FrequencyLimit,
		torqueLimit:      a.Gearing.TorqueLimit,
		ripple:           a.RippleCurrent(s.Battery.Voltage()),
		effectiveVoltage: a.EffectiveVoltage,
	}
	if math.IsInf(p.currentLimit, 1) || math.IsNaN(p.currentLimit) {
		return nil, ErrUnboundedCurrent
	}
	p.ids = []float64{0}
	if a.Controller.FieldWeakening {
		p.ids = numeric.Linspace(-p.currentLimit, p.currentLimit, gridSize+1)
	}
	return p, nil
}

// cell is the chosen operating point of one grid cell.
type cell struct {
	copper, iron, bus, mech float64
	iq, id                  float64
	mechTorque              float64
	voltageRatio            float64
	demag                   float64
	busVoltage              float64
}

// speed holds the per column motor shaft quantities.
type speed struct {
	rpm   float64 // motor shaft
	omega float64 // rad/s
	elec  float64 // electrical rad/s
	hz    float64 // electrical Hz
	drag  float64 // Nm
}

// solve searches the Id sweep for the feasible candidate drawing the least
// bus power at the given electromagnetic torque. Ties keep the lowest Id.
func (p *plant) solve(sp speed, em float64) (cell, bool) {
	best := cell{bus: math.Inf(1)}
	found := false

	iron := math.Abs(sp.drag * sp.omega)
	mechTorque := em - sp.drag
	mech := mechTorque * sp.omega
	rippleSq := p.ripple * p.ripple

	for _, id := range p.ids {
		linkage := p.flux + id*p.salience
		if math.Abs(linkage) < fluxFloor*p.flux {
			continue
		}
		iq := electrical.Desaturate(em/(1.5*p.polePairs*linkage), p.isat)
		isq := iq*iq + id*id

		vd := id*p.r - sp.elec*p.lq*iq
		vq := iq*p.r + sp.elec*p.ld*id + sp.elec*p.flux
		vsq := vd*vd + vq*vq

		isq += rippleSq
		copper := isq * p.r
		bus := copper + iron + mech

		// single pass sag from the bus power, ripple included
		busVoltage := p.batteryVoltage - bus/p.batteryVoltage*p.busResistance
		available := p.effectiveVoltage(busVoltage)

		demag := electrical.DemagnetizationFactor(iq, id, p.demagThreshold, p.demagRatio)

		ok := math.Abs(sp.hz) < p.frequencyLimit &&
			demag < 1 &&
			busVoltage > 0 &&
			vsq < available*available &&
			isq < p.currentLimit*p.currentLimit &&
			bus < p.peakDischarge &&
			bus > -p.peakCharge &&
			math.Abs(bus) < p.powerLimit
		if !ok || !(bus < best.bus) {
			continue
		}
		found = true
		best = cell{
			copper:       copper,
			iron:         iron,
			bus:          bus,
			mech:         mech,
			iq:           iq,
			id:           id,
			mechTorque:   mechTorque,
			voltageRatio: math.Sqrt(vsq) / available,
			demag:        demag,
			busVoltage:   busVoltage,
		}
	}
	return best, found
}

// Limits evaluates every (torque, rpm) pair of the grid. Torque and rpm are
// taken at the output shaft. Columns are independent and solved concurrently.
func Limits(ctx context.Context, s System, trange, rpm []float64, opts Options) (*Result, error) {
	if len(trange) == 0 || len(rpm) == 0 {
		return nil, fmt.Errorf("%w: %d torques, %d speeds", ErrEmptyGrid, len(trange), len(rpm))
	}
	opts = opts.withDefaults()
	if opts.GridSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrGridSize, opts.GridSize)
	}
	p, err := newPlant(s, opts.GridSize)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := NewResult(trange, rpm)
	gear := s.Actuator.Gearing
	m := s.Actuator.Motor

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for j, r := range rpm {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			motorRPM, _ := gear.Backward(r, 0)
			hz := motorRPM / 60
			sp := speed{
				rpm:   motorRPM,
				omega: 2 * math.Pi * hz,
				elec:  2 * math.Pi * hz * p.polePairs,
				hz:    hz * p.polePairs,
				drag:  m.IronDrag(hz),
			}
			for i, t := range trange {
				if math.Abs(t) > p.torqueLimit {
					continue
				}
				_, em := gear.Backward(r, t)
				c, ok := p.solve(sp, em)
				if !ok {
					continue
				}
				_, out := gear.Forward(sp.rpm, c.mechTorque)
				res.Copper.Set(i, j, c.copper)
				res.Iron.Set(i, j, c.iron)
				res.Bus.Set(i, j, c.bus)
				res.Mechanical.Set(i, j, c.mech)
				res.Iq.Set(i, j, c.iq)
				res.Id.Set(i, j, c.id)
				res.Output.Set(i, j, out)
				res.VoltageRatio.Set(i, j, c.voltageRatio)
				res.Demagnetization.Set(i, j, c.demag)
				res.BusVoltage.Set(i, j, c.busVoltage)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts.Logger.Debug("limits solved",
		zap.Int("torques", len(trange)),
		zap.Int("speeds", len(rpm)),
		zap.Int("id_candidates", len(p.ids)),
		zap.Float64("feasible", res.FeasibleFraction()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
