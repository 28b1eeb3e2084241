package thermal

import (
	"fmt"

	"github.com/san-kum/powertrain/internal/geometry"
	"github.com/san-kum/powertrain/internal/mass"
)

type Kind string

const (
	KindBasic   Kind = "basic"
	KindShelled Kind = "shelled"
	KindOpen    Kind = "open"
)

// Model pairs a conductivity with mass derived capacities. Geometry and mass
// are supplied on evaluation, so a rescaled motor gets a rescaled network.
type Model struct {
	Kind         Kind
	Conductivity Conductivity
}

// Network evaluates the model at a flow condition.
func (m Model) Network(g geometry.Geometry, ms mass.Mass, flow Flow) (Network, error) {
	k, err := m.Conductivity.Evaluate(g, flow)
	if err != nil {
		return Network{}, err
	}
	c, err := Capacity(ms.WithGeometry(g))
	if err != nil {
		return Network{}, err
	}
	return Network{Conductivity: k, Capacity: c}, nil
}

// Options selects and parameterizes one of the model kinds.
type Options struct {
	Kind  Kind         `yaml:"kind"`
	K0    float64      `yaml:"k0"`
	Kc    float64      `yaml:"kc"`
	Kl    float64      `yaml:"kl"`
	H     float64      `yaml:"h"`
	Shell ShellOptions `yaml:"shell"`
}

// New builds a model; geometry anchors the absolute coefficients of the basic
// and open kinds.
func New(g geometry.Geometry, o Options) (Model, error) {
	switch o.Kind {
	case KindBasic:
		c, err := Basic(g, o.K0, o.Kc, o.Kl)
		return Model{Kind: o.Kind, Conductivity: c}, err
	case KindShelled, "":
		shell := o.Shell
		if shell == (ShellOptions{}) {
			shell = DefaultShellOptions()
		}
		return Model{Kind: KindShelled, Conductivity: Shelled(shell)}, nil
	case KindOpen:
		h := o.H
		if h == 0 {
			h = 5
		}
		c, err := Open(g, h)
		return Model{Kind: o.Kind, Conductivity: c}, err
	}
	return Model{}, fmt.Errorf("%w: model kind %q", ErrInvalid, o.Kind)
}
