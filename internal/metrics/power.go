package metrics

import "math"

type Power struct {
	name string
	peak float64
}

func NewPower() *Power {
	return &Power{
		name: "peak_power",
	}
}

func (c *Power) Name() string {
	return c.name
}

func (c *Power) Observe(p Point) {
	c.peak = math.Max(c.peak, p.Mechanical)
}

func (c *Power) Value() float64 {
	return c.peak
}

func (c *Power) Reset() {
	c.peak = 0
}

// Regen is the largest power returned to the bus while braking.
type Regen struct {
	name string
	peak float64
}

func NewRegen() *Regen {
	return &Regen{name: "peak_regen"}
}

func (r *Regen) Name() string { return r.name }

func (r *Regen) Observe(p Point) {
	if p.Bus < 0 {
		r.peak = math.Max(r.peak, -p.Bus)
	}
}

func (r *Regen) Value() float64 { return r.peak }

func (r *Regen) Reset() { r.peak = 0 }
