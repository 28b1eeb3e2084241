package system

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/actuator"
	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/controller"
	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/mass"
	"github.com/san-kum/powertrain/internal/motor"
	"github.com/san-kum/powertrain/internal/thermal"
)

func hubGeometry(t *testing.T) geometry.Geometry {
	t.Helper()
	g, err := geometry.Create(geometry.Options{
		SlotTriplets: 17, PolePairs: 23, GapRadius: 0.1, GapLength: 0.027, SlotDepth: 0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// lossless has a unit torque constant, 0.1 Ω and no drag, saturation or
// demagnetization limit, on an ideal controller and a 48 V ideal battery.
func lossless(t *testing.T) System {
	t.Helper()
	return losslessWith(t, func(*electrical.Absolute) {})
}

// losslessWith is lossless with the electrical data adjusted by edit.
func losslessWith(t *testing.T, edit func(*electrical.Absolute)) System {
	t.Helper()
	a := electrical.Absolute{
		KtDQ:                   1,
		RDQ:                    0.1,
		LDQ:                    2e-4,
		Drag:                   &electrical.Drag{},
		SaturationCurrent:      math.Inf(1),
		DemagnetizationCurrent: math.Inf(1),
	}
	edit(&a)
	e, err := electrical.FromAbsolute(hubGeometry(t), a)
	if err != nil {
		t.Fatal(err)
	}
	return New(battery.Ideal(48), actuator.New(motor.New(e), controller.Ideal()))
}

func limited(t *testing.T) System {
	t.Helper()
	s := lossless(t)
	s.Actuator.Controller.PhaseCurrentLimit = 40
	s.Actuator.Controller.PowerLimit = 2000
	s.Actuator.Controller.BusVoltageLimit = 60
	return s
}

func withThermal(t *testing.T, s System) System {
	t.Helper()
	m := s.Actuator.Motor
	ms, err := mass.Infer(m.Geometry(), 4.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	model, err := thermal.New(m.Geometry(), thermal.Options{Kind: thermal.KindShelled})
	if err != nil {
		t.Fatal(err)
	}
	s.Actuator.Motor = m.WithMass(ms).WithThermal(model)
	return s
}

func solve(t *testing.T, s System, trange, rpm []float64) *Result {
	t.Helper()
	res, err := Limits(context.Background(), s, trange, rpm, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestStandstillTorque(t *testing.T) {
	g := NewWithT(t)
	res := solve(t, lossless(t), []float64{10, -10}, []float64{0})

	for i, sign := range []float64{1, -1} {
		g.Expect(res.Feasible(i, 0)).To(BeTrue())
		g.Expect(res.Iq.At(i, 0)).To(BeNumerically("~", 10*sign, 1e-9))
		g.Expect(res.Id.At(i, 0)).To(BeNumerically("~", 0, 1e-9))
		// ripple adds well under a milliwatt
		g.Expect(res.Copper.At(i, 0)).To(BeNumerically("~", 10, 1e-2))
		g.Expect(res.Bus.At(i, 0)).To(BeNumerically("~", 10, 1e-2))
		g.Expect(res.Mechanical.At(i, 0)).To(Equal(0.0))
		g.Expect(res.Iron.At(i, 0)).To(Equal(0.0))
		g.Expect(res.Output.At(i, 0)).To(BeNumerically("~", 10*sign, 1e-9))
	}
}

func TestBusPowerAtSpeed(t *testing.T) {
	g := NewWithT(t)
	res := solve(t, lossless(t), []float64{10}, []float64{200})

	omega := 200.0 / 60 * 2 * math.Pi
	g.Expect(res.Mechanical.At(0, 0)).To(BeNumerically("~", 10*omega, 1e-9))
	g.Expect(res.Bus.At(0, 0)).To(BeNumerically("~", res.Mechanical.At(0, 0)+res.Copper.At(0, 0), 1e-9))
	g.Expect(res.BusVoltage.At(0, 0)).To(BeNumerically("<", 48.0))
	g.Expect(res.VoltageRatio.At(0, 0)).To(BeNumerically("<", 1.0))
}

func TestInfeasibleBattery(t *testing.T) {
	// 1 Ah at 1/48 C and 48 V peaks at 1 W
	cell := battery.Cell{
		Name:           "tiny",
		MaximumVoltage: 48,
		NominalVoltage: 48,
		MinimumVoltage: 48,
		Capacity:       1,
		PeakDischarge:  1.0 / 48,
		PeakCharge:     1.0 / 48,
	}
	s := lossless(t)
	b, err := battery.New(cell, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.Battery = b

	res := solve(t, s, []float64{-10, 10}, []float64{0, 100})
	for _, m := range []*mat.Dense{res.Copper, res.Iron, res.Bus, res.Mechanical, res.Iq, res.Id, res.Output} {
		for _, v := range m.RawMatrix().Data {
			if !math.IsNaN(v) {
				t.Fatalf("expected NaN everywhere, got %g", v)
			}
		}
	}
	if res.FeasibleFraction() != 0 {
		t.Errorf("feasible fraction = %g", res.FeasibleFraction())
	}
}

func TestBusPowerGrowsWithTorque(t *testing.T) {
	trange := []float64{0, 2, 4, 8, 16, 32}
	res := solve(t, limited(t), trange, []float64{0})

	for i := 1; i < len(trange); i++ {
		prev, cur := res.Bus.At(i-1, 0), res.Bus.At(i, 0)
		if !(cur > prev) {
			t.Errorf("bus power at %g Nm = %g, not above %g", trange[i], cur, prev)
		}
	}
}

func TestCurrentLimit(t *testing.T) {
	g := NewWithT(t)
	res := solve(t, limited(t), []float64{39, 41}, []float64{0})

	g.Expect(res.Feasible(0, 0)).To(BeTrue())
	g.Expect(res.Feasible(1, 0)).To(BeFalse())
	g.Expect(math.IsNaN(res.Bus.At(1, 0))).To(BeTrue())
}

func TestFieldWeakening(t *testing.T) {
	g := NewWithT(t)
	// 500 rpm needs about 35 V of back-EMF, more than the inverter provides
	s := lossless(t)
	res := solve(t, s, []float64{1}, []float64{500})
	g.Expect(res.Feasible(0, 0)).To(BeTrue())
	g.Expect(res.Id.At(0, 0)).To(BeNumerically("<", 0))

	s.Actuator.Controller.FieldWeakening = false
	res = solve(t, s, []float64{1}, []float64{500})
	g.Expect(res.Feasible(0, 0)).To(BeFalse())
}

func TestGearing(t *testing.T) {
	g := NewWithT(t)
	s := lossless(t)
	s.Actuator.Gearing.Ratio = 2
	res := solve(t, s, []float64{20}, []float64{0})

	g.Expect(res.Iq.At(0, 0)).To(BeNumerically("~", 10, 1e-9))
	g.Expect(res.Output.At(0, 0)).To(BeNumerically("~", 20, 1e-9))

	s.Actuator.Gearing.Efficiency = 0.8
	res = solve(t, s, []float64{20}, []float64{0})
	g.Expect(res.Iq.At(0, 0)).To(BeNumerically("~", 12.5, 1e-9))
	g.Expect(res.Output.At(0, 0)).To(BeNumerically("~", 20, 1e-9))

	s.Actuator.Gearing.TorqueLimit = 15
	res = solve(t, s, []float64{10, 20}, []float64{0})
	g.Expect(res.Feasible(0, 0)).To(BeTrue())
	g.Expect(res.Feasible(1, 0)).To(BeFalse())
}

func TestLimitsErrors(t *testing.T) {
	s := lossless(t)
	unbounded := lossless(t)
	unbounded.Actuator.Controller.PhaseCurrentLimit = math.Inf(1)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		sys  System
		t    []float64
		rpm  []float64
		opts Options
		want error
	}{
		{"no torques", context.Background(), s, nil, []float64{0}, Options{}, ErrEmptyGrid},
		{"no speeds", context.Background(), s, []float64{1}, nil, Options{}, ErrEmptyGrid},
		{"negative sweep", context.Background(), s, []float64{1}, []float64{0}, Options{GridSize: -1}, ErrGridSize},
		{"unbounded current", context.Background(), unbounded, []float64{1}, []float64{0}, Options{}, ErrUnboundedCurrent},
		{"canceled", canceled, s, []float64{1}, []float64{0, 1}, Options{}, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Limits(tt.ctx, tt.sys, tt.t, tt.rpm, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEfficiencyAndDissipation(t *testing.T) {
	g := NewWithT(t)
	res := solve(t, limited(t), []float64{-5, 5}, []float64{100})

	d := res.Dissipation()
	e := res.Efficiency()
	for i := 0; i < 2; i++ {
		g.Expect(d.At(i, 0)).To(BeNumerically("~", res.Copper.At(i, 0)+res.Iron.At(i, 0), 1e-12))
		g.Expect(e.At(i, 0)).To(BeNumerically(">", 0.5))
		g.Expect(e.At(i, 0)).To(BeNumerically("<", 1.0))
	}
	// regenerating puts power back on the bus
	g.Expect(res.Bus.At(0, 0)).To(BeNumerically("<", 0))
}

func TestDetectLimits(t *testing.T) {
	g := NewWithT(t)
	s := limited(t)
	env, err := DetectLimits(context.Background(), s, DetectOptions{GridSize: 100})
	g.Expect(err).NotTo(HaveOccurred())

	peak := s.Actuator.PeakTorque()
	g.Expect(env.MaxTorque).To(BeNumerically(">", 0.5*peak))
	g.Expect(env.MaxTorque).To(BeNumerically("<=", 1.1*1.1*peak*1.1))
	maxRPM := s.Actuator.MaxRPM(s.Battery.Voltage(), 3)
	g.Expect(env.MaxRPM).To(BeNumerically(">", 0))
	g.Expect(env.MaxRPM).To(BeNumerically("<=", maxRPM*1.1*1.1))
}

func TestSet(t *testing.T) {
	g := NewWithT(t)
	s := lossless(t)

	half, err := s.Set("battery.charge_state", 0.5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(half.Battery.ChargeState).To(Equal(0.5))
	g.Expect(s.Battery.ChargeState).To(Equal(1.0))

	doubled, err := s.Set("motor.geometry.turns", 2*s.Actuator.Motor.Geometry().Turns)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(doubled.Actuator.Motor.Kt()).To(BeNumerically("~", 2*s.Actuator.Motor.Kt(), 1e-9))

	hot, err := s.SetAll(map[string]float64{"motor.coil_temperature": 100, "actuator.series": 2})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(hot.Actuator.Motor.CoilTemperature).To(Equal(100.0))
	g.Expect(hot.Actuator.Motor.MagnetTemperature).To(Equal(motor.AmbientTemperature))
	g.Expect(hot.Actuator.Series).To(Equal(2.0))

	_, err = s.Set("motor.wheel", 1)
	g.Expect(errors.Is(err, ErrUnknownPath)).To(BeTrue())
	_, err = s.Set("battery.charge_state", 1.5)
	g.Expect(errors.Is(err, ErrInvalid)).To(BeTrue())
	_, err = s.Set("gearing.efficiency", 0)
	g.Expect(errors.Is(err, ErrInvalid)).To(BeTrue())

	for _, p := range Paths() {
		_, err := s.Set(p, 1)
		g.Expect(err).NotTo(HaveOccurred(), p)
	}
}

func TestWeight(t *testing.T) {
	s := withThermal(t, lossless(t))
	base := s.Weight()
	if base < 4.5 {
		t.Errorf("weight %g below motor mass", base)
	}
	if got := s.WithLoad(Payload(80)).Weight(); math.Abs(got-base-80) > 1e-9 {
		t.Errorf("weight with load = %g, want %g", got, base+80)
	}
}

func TestSampleGraph(t *testing.T) {
	g := NewWithT(t)
	graph := mat.NewDense(2, 2, []float64{
		math.NaN(), 1,
		2, 3,
	})
	idx, err := SampleGraph(graph, []float64{2, 0})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(idx).To(Equal([]int{1, 0}))

	_, err = SampleGraph(graph, []float64{1})
	g.Expect(errors.Is(err, ErrShape)).To(BeTrue())
}

func TestCrossing(t *testing.T) {
	g := NewWithT(t)
	graph := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	at := Crossing(graph, 1.5)
	g.Expect(at(graph)).To(Equal([]float64{1.5}))

	data := mat.NewDense(4, 1, []float64{10, 20, 30, 40})
	g.Expect(at(data)[0]).To(BeNumerically("~", 25, 1e-12))
}

func TestScore(t *testing.T) {
	g := NewWithT(t)
	s := limited(t)

	reachable := []Target{{Torque: 10, RPM: 100, Dissipation: 1e6, Under: 1, Over: 1}}
	sc, err := Score(context.Background(), s, reachable, ScoreOptions{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(math.Abs(sc.Torque)).To(BeNumerically("<", 0.1))
	g.Expect(sc.Dissipation).To(BeNumerically("~", -1, 1e-2))

	out := []Target{{Torque: 100, RPM: 100, Dissipation: 1e6, Under: 1, Over: 1}}
	sc, err = Score(context.Background(), s, out, ScoreOptions{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sc.Torque).To(BeNumerically(">", 0.5))

	_, err = Score(context.Background(), s, nil, ScoreOptions{})
	g.Expect(errors.Is(err, ErrEmptyGrid)).To(BeTrue())
}

func TestThermalMap(t *testing.T) {
	g := NewWithT(t)
	s := withThermal(t, limited(t))
	res := solve(t, s, []float64{0, 20, 41}, []float64{0, 100})

	short, err := ThermalMap(context.Background(), s, res, ThermalOptions{Horizon: 2})
	g.Expect(err).NotTo(HaveOccurred())
	long, err := ThermalMap(context.Background(), s, res, ThermalOptions{Horizon: 600})
	g.Expect(err).NotTo(HaveOccurred())

	for j := 0; j < 2; j++ {
		g.Expect(math.IsNaN(short.At(2, j))).To(BeTrue())
		g.Expect(short.At(1, j)).To(BeNumerically(">", 0))
		g.Expect(long.At(1, j)).To(BeNumerically(">", short.At(1, j)))
	}

	_, err = ThermalMap(context.Background(), lossless(t), res, ThermalOptions{Horizon: 2})
	g.Expect(errors.Is(err, motor.ErrNoThermal)).To(BeTrue())
	_, err = ThermalMap(context.Background(), s, res, ThermalOptions{Horizon: 2, Node: "wheel"})
	g.Expect(errors.Is(err, thermal.ErrUnknownNode)).To(BeTrue())
}

func TestEfficiencyBounds(t *testing.T) {
	g := NewWithT(t)
	res := solve(t, lossless(t), []float64{-5, 0, 5}, []float64{0, 100})

	e := res.Efficiency()
	// no shaft power at standstill
	for i := range res.Torque {
		g.Expect(math.IsNaN(e.At(i, 0))).To(BeTrue(), "torque %g", res.Torque[i])
	}
	g.Expect(math.IsNaN(e.At(1, 1))).To(BeTrue())
	for _, i := range []int{0, 2} {
		g.Expect(e.At(i, 1)).To(BeNumerically(">", 0))
		g.Expect(e.At(i, 1)).To(BeNumerically("<=", 1))
	}

	// braking that still draws from the bus has no meaningful efficiency
	r := NewResult([]float64{-1}, []float64{10})
	r.Output.Set(0, 0, -1)
	r.Mechanical.Set(0, 0, -2)
	r.Bus.Set(0, 0, 3)
	g.Expect(math.IsNaN(r.Efficiency().At(0, 0))).To(BeTrue())
	for _, v := range e.RawMatrix().Data {
		g.Expect(math.IsInf(v, 0)).To(BeFalse())
	}
}

func TestSagIncludesRipple(t *testing.T) {
	g := NewWithT(t)
	s := lossless(t)
	b, err := battery.New(battery.Samsung21700, 12, 2)
	g.Expect(err).NotTo(HaveOccurred())
	s.Battery = b

	// ripple alone draws a little power at zero torque and standstill
	res := solve(t, s, []float64{0}, []float64{0})
	g.Expect(res.Feasible(0, 0)).To(BeTrue())
	g.Expect(res.Bus.At(0, 0)).To(BeNumerically(">", 0))
	g.Expect(res.BusVoltage.At(0, 0)).To(BeNumerically("<", b.Voltage()))
}

// regenLimited peaks at 100 W of charge and 48 kW of discharge.
func regenLimited(t *testing.T) battery.Battery {
	t.Helper()
	b, err := battery.New(battery.Cell{
		Name:           "regen",
		MaximumVoltage: 48,
		NominalVoltage: 48,
		MinimumVoltage: 48,
		Capacity:       1,
		PeakDischarge:  1000,
		PeakCharge:     100.0 / 48,
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// Each case binds a single limit. Field weakening is off so the Id sweep
// cannot trade copper loss or magnet field for feasibility.
func TestSingleLimitInfeasibility(t *testing.T) {
	tests := []struct {
		name   string
		sys    func(t *testing.T) System
		torque float64
		rpm    float64
		// the neighbouring cell that the limit leaves alone
		okTorque, okRPM float64
	}{
		{
			name: "demagnetization",
			sys: func(t *testing.T) System {
				return losslessWith(t, func(a *electrical.Absolute) { a.DemagnetizationCurrent = 1 })
			},
			torque: 10, rpm: 0,
			okTorque: 1, okRPM: 0,
		},
		{
			name: "controller frequency",
			sys: func(t *testing.T) System {
				s := lossless(t)
				// 23 pole pairs: 100 rpm is 38 Hz, 50 rpm is 19 Hz
				s.Actuator.Controller.FrequencyLimit = 30
				return s
			},
			torque: 1, rpm: 100,
			okTorque: 1, okRPM: 50,
		},
		{
			name: "battery charge power",
			sys: func(t *testing.T) System {
				s := lossless(t)
				s.Battery = regenLimited(t)
				return s
			},
			// about 200 W of regen, while motoring draws 220 W
			torque: -10, rpm: 200,
			okTorque: 10, okRPM: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			limitedSys := tt.sys(t)
			limitedSys.Actuator.Controller.FieldWeakening = false
			free := lossless(t)
			free.Actuator.Controller.FieldWeakening = false

			res := solve(t, limitedSys, []float64{tt.torque, tt.okTorque}, []float64{tt.rpm, tt.okRPM})
			g.Expect(res.Feasible(0, 0)).To(BeFalse())
			for _, m := range res.Layers() {
				g.Expect(math.IsNaN(m.At(0, 0))).To(BeTrue())
			}
			g.Expect(res.Feasible(1, 1)).To(BeTrue())

			res = solve(t, free, []float64{tt.torque}, []float64{tt.rpm})
			g.Expect(res.Feasible(0, 0)).To(BeTrue(), "feasible without the limit")
		})
	}
}

func TestSalientFluxFloor(t *testing.T) {
	g := NewWithT(t)
	// Salience = Ld - Lq = -1.5 L with a unit salience ratio; choosing
	// L = flux/15 cancels the flux linkage at exactly Id = 10 A, a point of
	// the 1 A sweep below.
	flux := electrical.FluxFromKt(1, hubGeometry(t).PolePairs())
	s := losslessWith(t, func(a *electrical.Absolute) {
		a.LDQ = flux / 15
		a.SalienceRatio = 1
	})
	s.Actuator.Controller.PhaseCurrentLimit = 100
	g.Expect(s.Actuator.Motor.Salience()).To(BeNumerically("~", -flux/10, 1e-15))

	trange := []float64{-20, -10, -1, 1, 10, 20}
	res, err := Limits(context.Background(), s, trange, []float64{0, 50}, Options{GridSize: 200})
	g.Expect(err).NotTo(HaveOccurred())

	for _, m := range res.Layers() {
		for _, v := range m.RawMatrix().Data {
			g.Expect(math.IsInf(v, 0)).To(BeFalse())
		}
	}
	for i := range trange {
		g.Expect(res.Feasible(i, 0)).To(BeTrue(), "torque %g at standstill", trange[i])
		g.Expect(res.Id.At(i, 0)).NotTo(BeNumerically("~", 10, 1e-9))
		g.Expect(math.Abs(res.Iq.At(i, 0))).To(BeNumerically("<", 100))
	}
}

func TestStandstillFeasibilityIsMonotonic(t *testing.T) {
	tests := []struct {
		name string
		sys  func(t *testing.T) System
	}{
		{"current limit", limited},
		{"power limit", func(t *testing.T) System {
			s := lossless(t)
			s.Actuator.Controller.PowerLimit = 50
			return s
		}},
		{"salient current limit", func(t *testing.T) System {
			s := losslessWith(t, func(a *electrical.Absolute) { a.SalienceRatio = 0.5 })
			s.Actuator.Controller.PhaseCurrentLimit = 40
			return s
		}},
	}

	var trange []float64
	for v := 0.0; v <= 80; v += 2 {
		trange = append(trange, v)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sign := range []float64{1, -1} {
				ts := make([]float64, len(trange))
				for i, v := range trange {
					ts[i] = sign * v
				}
				res := solve(t, tt.sys(t), ts, []float64{0})

				first := -1
				for i := range ts {
					if !res.Feasible(i, 0) {
						first = i
						break
					}
				}
				if first <= 0 {
					t.Fatalf("sign %g: first infeasible torque index %d, want a feasible start and a limit", sign, first)
				}
				for i := first; i < len(ts); i++ {
					if res.Feasible(i, 0) {
						t.Errorf("sign %g: %g Nm feasible above infeasible %g Nm", sign, ts[i], ts[first])
					}
				}
			}
		})
	}
}
