// Package thermal models a motor as a resistor-capacitor network of named
// nodes and solves it with an implicit Euler step.
package thermal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/edp1096/sparse"
)

// Pair names the two nodes a conductance connects.
type Pair struct {
	A, B string
}

func (p Pair) String() string { return p.A + "_" + p.B }

// ParsePair reads the node pair from the first two underscore separated
// tokens of a conductance name, e.g. "stator_rotor_ff_c".
func ParsePair(name string) (Pair, bool) {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, false
	}
	return Pair{A: parts[0], B: parts[1]}, true
}

// Network holds conductances in W/K and capacities in J/K.
type Network struct {
	Conductivity map[Pair]float64
	Capacity     map[string]float64
}

// Nodes lists the network's nodes in sorted order.
func (n Network) Nodes() []string {
	nodes := make([]string, 0, len(n.Capacity))
	for k := range n.Capacity {
		nodes = append(nodes, k)
	}
	sort.Strings(nodes)
	return nodes
}

func (n Network) pairs() []Pair {
	pairs := make([]Pair, 0, len(n.Conductivity))
	for p := range n.Conductivity {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	return pairs
}

func matrixConfig() *sparse.Configuration {
	return &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}
}

// Solve takes one implicit Euler step of length dt from a uniform start,
// solving (K + C/dt)·T = Q, and returns the temperature rise of every node.
// A long step approaches steady state; a short one gives the initial response.
func (n Network) Solve(source map[string]float64, dt float64) (map[string]float64, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: dt = %g", ErrInvalid, dt)
	}
	nodes := n.Nodes()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalid)
	}
	idx := make(map[string]int64, len(nodes))
	for i, k := range nodes {
		idx[k] = int64(i + 1)
	}

	A, err := sparse.Create(int64(len(nodes)), matrixConfig())
	if err != nil {
		return nil, fmt.Errorf("thermal: create matrix: %w", err)
	}
	defer A.Destroy()
	A.Clear()

	for _, k := range nodes {
		c := n.Capacity[k]
		if c < 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: capacity %s = %g", ErrInvalid, k, c)
		}
		i := idx[k]
		A.GetElement(i, i).Real += c / dt
	}
	for _, p := range n.pairs() {
		i, ok := idx[p.A]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownNode, p.A, p)
		}
		j, ok := idx[p.B]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownNode, p.B, p)
		}
		if i == j {
			continue
		}
		k := n.Conductivity[p]
		A.GetElement(i, i).Real += k
		A.GetElement(j, j).Real += k
		A.GetElement(i, j).Real -= k
		A.GetElement(j, i).Real -= k
	}

	rhs := make([]float64, len(nodes)+1)
	for name, q := range source {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: source %s", ErrUnknownNode, name)
		}
		rhs[i] += q
	}

	if err := A.Factor(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	x, err := A.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	out := make(map[string]float64, len(nodes))
	for _, k := range nodes {
		out[k] = x[idx[k]]
	}
	return out, nil
}
