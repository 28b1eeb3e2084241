package electrical

import "math"

// The saturation curve is a smooth soft-max that blends the unit slope of the
// linear region into a slope of one half beyond the saturation current isat:
//
//	f(x) = x - (h(x-isat) - h(-isat)) / 2,  h(u) = (u + sqrt(u² + e²)) / 2
//
// with knee width e = isat/4. f(0) = 0, and f(3·isat) is close to 2·isat.

func softplus(u, e float64) float64 {
	return (u + math.Hypot(u, e)) / 2
}

func saturate(x, isat float64) float64 {
	e := isat / 4
	return x - (softplus(x-isat, e)-softplus(-isat, e))/2
}

// Saturate maps a physical current to the effective torque-producing current.
// The curve is odd in x.
func Saturate(x, isat float64) float64 {
	if isat <= 0 || math.IsInf(isat, 1) {
		return x
	}
	return math.Copysign(saturate(math.Abs(x), isat), x)
}

// SaturationFactor is Saturate(x)/x, defined as 1 at x = 0.
func SaturationFactor(x, isat float64) float64 {
	if x == 0 {
		return 1
	}
	return Saturate(x, isat) / x
}

// Desaturate inverts Saturate in closed form.
func Desaturate(y, isat float64) float64 {
	if isat <= 0 || math.IsInf(isat, 1) {
		return y
	}
	e := isat / 4
	a := math.Abs(y) - softplus(-isat, e)/2
	w := 4 * (a - isat)
	u := (3*w + math.Sqrt(w*w+8*e*e)) / 8
	return math.Copysign(isat+u, y)
}
