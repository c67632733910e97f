package pricing

import "math"

// ComputeGreeks returns Delta, Gamma, Theta, Vega and Rho.
//
// When the closed form does not apply (σ <= 0, T <= 0 or non-positive
// spot/strike) delta is the exercise step function and every other Greek
// is zero.
func ComputeGreeks(p Params) Greeks {
	if p.degenerate() || p.Spot <= 0 || p.Strike <= 0 {
		return Greeks{Delta: stepDelta(p)}
	}

	d1, d2 := D1D2(p)
	sqrtT := math.Sqrt(p.T)
	qDisc := math.Exp(-p.Dividend * p.T)
	rDisc := math.Exp(-p.Rate * p.T)
	pdf := NormalPDF(d1)

	g := Greeks{
		Gamma: qDisc * pdf / (p.Spot * p.Vol * sqrtT),
		Vega:  rawVega(p.Spot, qDisc, pdf, sqrtT) / 100,
	}

	decay := -p.Spot * qDisc * pdf * p.Vol / (2 * sqrtT)

	switch p.Type {
	case Put:
		g.Delta = -qDisc * NormalCDF(-d1)
		g.Theta = decay + p.Rate*p.Strike*rDisc*NormalCDF(-d2) - p.Dividend*p.Spot*qDisc*NormalCDF(-d1)
		g.Rho = -p.Strike * p.T * rDisc * NormalCDF(-d2) / 100
	default:
		g.Delta = qDisc * NormalCDF(d1)
		g.Theta = decay - p.Rate*p.Strike*rDisc*NormalCDF(d2) + p.Dividend*p.Spot*qDisc*NormalCDF(d1)
		g.Rho = p.Strike * p.T * rDisc * NormalCDF(d2) / 100
	}
	g.Theta /= DaysPerYear

	return g
}

// rawVega is ∂price/∂σ with σ as a decimal.
func rawVega(spot, qDisc, pdf, sqrtT float64) float64 {
	return spot * qDisc * pdf * sqrtT
}

func stepDelta(p Params) float64 {
	switch p.Type {
	case Put:
		if p.Spot < p.Strike {
			return -1
		}
	default:
		if p.Spot > p.Strike {
			return 1
		}
	}
	return 0
}
