package main

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/powertrain/internal/optim"
	"github.com/san-kum/powertrain/internal/system"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in     string
		path   string
		values []float64
		err    bool
	}{
		{"motor.scale.length=0.5:1.5:3", "motor.scale.length", []float64{0.5, 1, 1.5}, false},
		{"gearing.ratio=4:9:1", "gearing.ratio", []float64{4}, false},
		{"gearing.ratio", "", nil, true},
		{"gearing.ratio=1:2", "", nil, true},
		{"gearing.ratio=a:2:3", "", nil, true},
		{"gearing.ratio=1:2:0", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g := NewWithT(t)
			path, values, err := parseRange(tt.in)
			if tt.err {
				g.Expect(err).To(MatchError(errSyntax))
				return
			}
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(path).To(Equal(tt.path))
			g.Expect(values).To(HaveLen(len(tt.values)))
			for i := range values {
				g.Expect(values[i]).To(BeNumerically("~", tt.values[i], 1e-12))
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	g := NewWithT(t)

	got, err := parseTarget("30@250:400")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(system.Target{Torque: 30, RPM: 250, Dissipation: 400, Under: 0.1, Over: 1}))

	for _, bad := range []string{"30@250", "30:400", "x@250:400", "0@250:400", "30@250:0"} {
		_, err := parseTarget(bad)
		g.Expect(err).To(MatchError(errSyntax), bad)
	}
}

func TestParseCondition(t *testing.T) {
	g := NewWithT(t)

	got, err := parseCondition("battery.charge_state=0.2, motor.coil_temperature=120")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(optim.Condition{"battery.charge_state": 0.2, "motor.coil_temperature": 120}))

	_, err = parseCondition("battery.charge_state")
	g.Expect(err).To(MatchError(errSyntax))
	_, err = parseCondition("battery.charge_state=low")
	g.Expect(err).To(MatchError(errSyntax))
}
