// Package scaled stores physical attributes as dimensionless coefficients.
//
// Every attribute declares a sparse power law over named quantities sampled
// from one or more contexts (usually a motor geometry):
//
//	value = coefficient * prod(context.Sample(q) ^ exponent[q])
//
// Setting an attribute from a dimensional value divides out the current scale
// factor, so rebinding the container to a different context (a rescaled
// geometry) moves every dimensional value along its declared scaling law
// while the coefficients stay fixed.
//
// # Example
//
//	table := scaled.Table[string]{"R": {"length": 1, "area": -1}}
//	s := scaled.New(table, geo)
//	s, _ = s.WithDimensional("R", 0.1)
//	r, _ := s.WithContexts(geo.Rescale(geometry.Scale{Length: 2})).Get("R") // 0.2
package scaled
