package system_test

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/powertrain/internal/actuator"
	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/controller"
	"github.com/san-kum/powertrain/internal/electrical"
	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/motor"
	"github.com/san-kum/powertrain/internal/numeric"
	"github.com/san-kum/powertrain/internal/system"
)

func TestLimitsSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Operating point solver")
}

// droneSystem is a small outrunner on a current and voltage limited
// controller, with salience, drag and saturation all active.
func droneSystem() system.System {
	g, err := geometry.Create(geometry.Options{
		SlotTriplets: 4, PolePairs: 7, GapDiameter: 54e-3, GapLength: 8e-3, SlotDepthFraction: 0.4,
	})
	Expect(err).NotTo(HaveOccurred())
	e, err := electrical.FromAbsolute(g, electrical.Absolute{
		Kv: 330, RLL: 50e-3, LLL: 30e-6, SalienceRatio: 0.1,
	})
	Expect(err).NotTo(HaveOccurred())
	c := controller.Ideal()
	c.PhaseCurrentLimit = 60
	c.PowerLimit = 1200
	c.BusVoltageLimit = 54
	c.InternalResistance = 3e-3
	c.RippleFrequency = 48e3
	c.FrequencyLimit = 3000
	return system.New(battery.Ideal(48), actuator.New(motor.New(e), c))
}

var _ = Describe("Limits", func() {
	var (
		sys    system.System
		trange []float64
		rpm    []float64
		res    *system.Result
	)

	BeforeEach(func() {
		sys = droneSystem()
		peak := sys.Actuator.PeakTorque()
		trange = numeric.Linspace(-1.2*peak, 1.2*peak, 41)
		rpm = numeric.Linspace(0, sys.Actuator.MaxRPM(48, 2), 21)
	})

	JustBeforeEach(func() {
		var err error
		res, err = system.Limits(context.Background(), sys, trange, rpm, system.Options{GridSize: 200})
		Expect(err).NotTo(HaveOccurred())
	})

	It("shapes every output as torque by speed", func() {
		r, c := res.Bus.Dims()
		Expect(r).To(Equal(len(trange)))
		Expect(c).To(Equal(len(rpm)))
		Expect(res.Torque).To(Equal(trange))
		Expect(res.RPM).To(Equal(rpm))
	})

	It("marks whole cells infeasible at once", func() {
		for i := range trange {
			for j := range rpm {
				nan := math.IsNaN(res.Output.At(i, j))
				Expect(math.IsNaN(res.Bus.At(i, j))).To(Equal(nan))
				Expect(math.IsNaN(res.Iq.At(i, j))).To(Equal(nan))
				Expect(math.IsNaN(res.Id.At(i, j))).To(Equal(nan))
				Expect(math.IsNaN(res.Copper.At(i, j))).To(Equal(nan))
			}
		}
	})

	It("never reports infinities", func() {
		for _, v := range res.Bus.RawMatrix().Data {
			Expect(math.IsInf(v, 0)).To(BeFalse())
		}
	})

	It("respects every limit in feasible cells", func() {
		limit := sys.Actuator.PhaseCurrentLimit()
		for i := range trange {
			for j := range rpm {
				if !res.Feasible(i, j) {
					continue
				}
				iq, id := res.Iq.At(i, j), res.Id.At(i, j)
				Expect(iq*iq + id*id).To(BeNumerically("<", limit*limit))
				Expect(math.Abs(res.Bus.At(i, j))).To(BeNumerically("<", sys.Actuator.PowerLimit()))
				Expect(res.VoltageRatio.At(i, j)).To(BeNumerically("<", 1))
				Expect(res.Demagnetization.At(i, j)).To(BeNumerically("<", 1))
			}
		}
	})

	It("has no drag or iron loss at standstill", func() {
		for i := range trange {
			if res.Feasible(i, 0) {
				Expect(res.Iron.At(i, 0)).To(Equal(0.0))
				Expect(res.Mechanical.At(i, 0)).To(Equal(0.0))
			}
		}
	})

	It("feasibly holds zero torque at standstill", func() {
		Expect(res.Feasible(len(trange)/2, 0)).To(BeTrue())
	})

	It("delivers less torque than requested once drag applies", func() {
		j := 1
		for i, t := range trange {
			if t > 0 && res.Feasible(i, j) {
				Expect(res.Output.At(i, j)).To(BeNumerically("<", t))
			}
		}
	})

	Context("without field weakening", func() {
		BeforeEach(func() {
			sys.Actuator.Controller.FieldWeakening = false
		})

		It("only uses quadrature current", func() {
			for _, v := range res.Id.RawMatrix().Data {
				if !math.IsNaN(v) {
					Expect(v).To(Equal(0.0))
				}
			}
		})

		It("reaches no more cells than with it", func() {
			with := droneSystem()
			full, err := system.Limits(context.Background(), with, trange, rpm, system.Options{GridSize: 200})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FeasibleFraction()).To(BeNumerically("<=", full.FeasibleFraction()))
		})
	})

	Context("with a sagging battery", func() {
		BeforeEach(func() {
			b, err := battery.New(battery.Samsung21700, 12, 2)
			Expect(err).NotTo(HaveOccurred())
			sys.Battery = b
		})

		It("sags the bus below open circuit voltage when discharging", func() {
			for i := range trange {
				for j := range rpm {
					if res.Feasible(i, j) && res.Bus.At(i, j) > 0 {
						Expect(res.BusVoltage.At(i, j)).To(BeNumerically("<", sys.Battery.Voltage()))
					}
				}
			}
		})
	})
})
