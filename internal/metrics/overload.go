package metrics

type Overload struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

// NewOverload counts the share of cells dissipating more than threshold
// watts, e.g. the continuous rating of a motor.
func NewOverload(threshold float64) *Overload {
	return &Overload{
		name:      "overload",
		threshold: threshold,
	}
}

func (o *Overload) Name() string {
	return o.name
}

func (o *Overload) Observe(p Point) {
	o.samples++
	if p.Dissipation > o.threshold {
		o.violations++
	}
}

func (o *Overload) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return float64(o.violations) / float64(o.samples)
}

func (o *Overload) Reset() {
	o.violations = 0
	o.samples = 0
}
