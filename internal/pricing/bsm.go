package pricing

import "math"

// D1D2 returns the Black-Scholes-Merton d1 and d2 terms.
// Callers must ensure Spot, Strike, Vol and T are positive.
func D1D2(p Params) (float64, float64) {
	volSqrtT := p.Vol * math.Sqrt(p.T)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+p.Vol*p.Vol/2)*p.T) / volSqrtT
	return d1, d1 - volSqrtT
}

// Intrinsic is the exercise value at expiry.
func Intrinsic(t OptionType, spot, strike float64) float64 {
	if t == Put {
		return math.Max(0, strike-spot)
	}
	return math.Max(0, spot-strike)
}

// Price returns the theoretical European option price.
//
// A non-positive volatility yields 0. That is a fallback for unusable input,
// not a financial identity. At or after expiry (T <= 0) the intrinsic value
// is returned, which is the limit of the closed form.
func Price(p Params) float64 {
	if p.Vol <= 0 {
		return 0
	}
	if p.T <= 0 {
		return Intrinsic(p.Type, p.Spot, p.Strike)
	}
	if p.Spot <= 0 || p.Strike <= 0 {
		return 0
	}

	d1, d2 := D1D2(p)
	discS := p.Spot * math.Exp(-p.Dividend*p.T)
	discK := p.Strike * math.Exp(-p.Rate*p.T)

	switch p.Type {
	case Put:
		return math.Max(0, discK*NormalCDF(-d2)-discS*NormalCDF(-d1))
	default:
		return math.Max(0, discS*NormalCDF(d1)-discK*NormalCDF(d2))
	}
}

// Evaluate prices the option and computes its Greeks in one pass.
func Evaluate(p Params) Result {
	return Result{Price: Price(p), Greeks: ComputeGreeks(p)}
}
