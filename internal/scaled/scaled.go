package scaled

import (
	"fmt"
	"math"
	"sort"
)

// Context supplies the named quantities scaling laws are expressed in.
type Context interface {
	Sample(key string) (float64, bool)
}

// Params is a flat set of scalar quantities, e.g. flow velocities or tuning factors.
type Params map[string]float64

func (p Params) Sample(key string) (float64, bool) {
	v, ok := p[key]
	return v, ok
}

// Exponents maps a context quantity to the power it enters a scaling law with.
type Exponents map[string]float64

// Table declares the scaling law of every attribute.
type Table[K ~string] map[K]Exponents

// Clone returns a deep copy, so derived tables can be edited freely.
func (t Table[K]) Clone() Table[K] {
	c := make(Table[K], len(t))
	for k, e := range t {
		ec := make(Exponents, len(e))
		for q, p := range e {
			ec[q] = p
		}
		c[k] = ec
	}
	return c
}

// Scaled is an immutable attribute container. All With* methods return copies.
type Scaled[K ~string] struct {
	table    Table[K]
	coeffs   map[K]float64
	contexts []Context
}

func New[K ~string](table Table[K], contexts ...Context) Scaled[K] {
	return Scaled[K]{
		table:    table,
		coeffs:   make(map[K]float64),
		contexts: contexts,
	}
}

func (s Scaled[K]) sample(key string) (float64, error) {
	for _, c := range s.contexts {
		if c == nil {
			continue
		}
		if v, ok := c.Sample(key); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownQuantity, key)
}

// Factor is the product of sampled quantities raised to the attribute's
// exponents. An attribute without a scaling entry has factor 1.
func (s Scaled[K]) Factor(name K) (float64, error) {
	exps, ok := s.table[name]
	if !ok {
		if _, stored := s.coeffs[name]; !stored {
			return 0, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
		}
		return 1, nil
	}
	factor := 1.0
	for _, q := range sortedKeys(exps) {
		v, err := s.sample(q)
		if err != nil {
			return 0, fmt.Errorf("attribute %s: %w", name, err)
		}
		factor *= math.Pow(v, exps[q])
	}
	return factor, nil
}

// Get returns the dimensional value of an attribute.
func (s Scaled[K]) Get(name K) (float64, error) {
	c, ok := s.coeffs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	f, err := s.Factor(name)
	if err != nil {
		return 0, err
	}
	return c * f, nil
}

// Coefficient returns the stored dimensionless coefficient.
func (s Scaled[K]) Coefficient(name K) (float64, bool) {
	c, ok := s.coeffs[name]
	return c, ok
}

// WithDimensional stores value divided by the attribute's current scale factor.
func (s Scaled[K]) WithDimensional(name K, value float64) (Scaled[K], error) {
	f, err := s.factorForStore(name)
	if err != nil {
		return s, err
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return s, fmt.Errorf("%w: %s = %g", ErrDegenerateScale, name, f)
	}
	return s.WithDimensionless(name, value/f), nil
}

// factorForStore allows storing attributes that have no table entry yet.
func (s Scaled[K]) factorForStore(name K) (float64, error) {
	if _, ok := s.table[name]; !ok {
		return 1, nil
	}
	return s.Factor(name)
}

// WithDimensionless stores a coefficient as-is.
func (s Scaled[K]) WithDimensionless(name K, coefficient float64) Scaled[K] {
	coeffs := make(map[K]float64, len(s.coeffs)+1)
	for k, v := range s.coeffs {
		coeffs[k] = v
	}
	coeffs[name] = coefficient
	s.coeffs = coeffs
	return s
}

// FromDimensional stores a batch of dimensional values.
func (s Scaled[K]) FromDimensional(attrs map[K]float64) (Scaled[K], error) {
	var err error
	for _, k := range sortedKeys(attrs) {
		if s, err = s.WithDimensional(k, attrs[k]); err != nil {
			return s, err
		}
	}
	return s, nil
}

// FromDimensionless stores a batch of coefficients.
func (s Scaled[K]) FromDimensionless(attrs map[K]float64) Scaled[K] {
	for _, k := range sortedKeys(attrs) {
		s = s.WithDimensionless(k, attrs[k])
	}
	return s
}

// WithContexts rebinds the container; coefficients are kept.
func (s Scaled[K]) WithContexts(contexts ...Context) Scaled[K] {
	s.contexts = contexts
	return s
}

// Table returns the scaling table the container was declared with.
func (s Scaled[K]) Table() Table[K] { return s.table }

// Names lists the stored attributes in sorted order.
func (s Scaled[K]) Names() []K {
	return sortedKeys(s.coeffs)
}

// Values evaluates every stored attribute.
func (s Scaled[K]) Values() (map[K]float64, error) {
	out := make(map[K]float64, len(s.coeffs))
	for k := range s.coeffs {
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
