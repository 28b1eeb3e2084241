package metrics

type Efficiency struct {
	name string
	peak float64
}

func NewEfficiency() *Efficiency {
	return &Efficiency{
		name: "peak_efficiency",
	}
}

func (e *Efficiency) Name() string { return e.name }

// Observe tracks motoring efficiency, mechanical over bus power.
func (e *Efficiency) Observe(p Point) {
	if p.Mechanical <= 0 || p.Bus <= 0 {
		return
	}
	if eff := p.Mechanical / p.Bus; eff > e.peak {
		e.peak = eff
	}
}

func (e *Efficiency) Value() float64 {
	return e.peak
}

func (e *Efficiency) Reset() {
	e.peak = 0
}
