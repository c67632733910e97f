package pricing

import "math"

// Abramowitz & Stegun 26.2.17 coefficients.
const (
	asP  = 0.2316419
	asB1 = 0.319381530
	asB2 = -0.356563782
	asB3 = 1.781477937
	asB4 = -1.821255978
	asB5 = 1.330274429

	cdfCutoff = 10.0
)

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// NormalPDF is the standard normal density.
func NormalPDF(x float64) float64 {
	return math.Exp(-x*x/2) * invSqrt2Pi
}

// NormalCDF is the standard normal distribution function, accurate to about
// 7.5e-8. The polynomial is fitted to the upper tail, so the tail is always
// evaluated at |x| and mirrored.
func NormalCDF(x float64) float64 {
	if x < -cdfCutoff {
		return 0
	}
	if x > cdfCutoff {
		return 1
	}

	ax := math.Abs(x)
	t := 1 / (1 + asP*ax)
	poly := t * (asB1 + t*(asB2+t*(asB3+t*(asB4+t*asB5))))
	tail := NormalPDF(ax) * poly

	if x >= 0 {
		return 1 - tail
	}
	return tail
}
