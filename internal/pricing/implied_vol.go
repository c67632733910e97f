package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Solver calibration. The nudge factors and VegaEpsilon are empirical and
// may be tuned if a different convergence profile is observed.
const (
	IVTolerance     = 1e-8
	IVMaxIterations = 100
	IVMinVol        = 0.001 // 0.1%
	IVMaxVol        = 5.0   // 500%
	IVDefaultGuess  = 0.30
	VegaEpsilon     = 1e-10

	nudgeDown = 0.8
	nudgeUp   = 1.2
)

var (
	// ErrIVNotFound is the parent of every implied volatility failure.
	ErrIVNotFound = errors.New("implied volatility not found")

	ErrNonPositivePrice = fmt.Errorf("%w: market price must be positive", ErrIVNotFound)
	ErrNoConvergence    = fmt.Errorf("%w: no convergence within %d iterations", ErrIVNotFound, IVMaxIterations)
)

// IVSolution is the outcome of one implied volatility search.
// Error is the last theoretical minus market price difference.
type IVSolution struct {
	Volatility float64 `json:"volatility"`
	Iterations int     `json:"iterations"`
	Error      float64 `json:"error"`
}

// ImpliedVolatility inverts Price for the volatility that reproduces
// marketPrice. p.Vol is ignored. On failure the returned error wraps
// ErrIVNotFound and the solution carries no volatility.
//
// Price is increasing in volatility, so every trial narrows a [lo, hi]
// bracket around the root. A Newton step that leaves the bracket is
// replaced by the bracket midpoint.
func ImpliedVolatility(p Params, marketPrice float64) (IVSolution, error) {
	if !(marketPrice > 0) {
		return IVSolution{}, ErrNonPositivePrice
	}

	lo, hi := IVMinVol, IVMaxVol
	sigma := InitialVolGuess(p.Spot, p.T, marketPrice)
	var diff float64

	for i := 1; i <= IVMaxIterations; i++ {
		trial := p.WithVol(sigma)
		diff = Price(trial) - marketPrice
		if math.Abs(diff) < IVTolerance {
			return IVSolution{Volatility: sigma, Iterations: i, Error: diff}, nil
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}

		var next float64
		if vega := vegaAt(trial); math.Abs(vega) < VegaEpsilon {
			// flat region, a Newton step would blow up
			if diff > 0 {
				next = sigma * nudgeDown
			} else {
				next = sigma * nudgeUp
			}
		} else {
			next = sigma - diff/vega
		}
		if !(next > lo && next < hi) {
			next = (lo + hi) / 2
		}
		sigma = next
	}

	return IVSolution{Iterations: IVMaxIterations, Error: diff}, ErrNoConvergence
}

// InitialVolGuess is the Brenner-Subrahmanyam approximation
// sqrt(2π/T)·price/S, clamped to the solver bounds.
func InitialVolGuess(spot, t, price float64) float64 {
	guess := math.Sqrt(2*math.Pi/t) * price / spot
	if math.IsNaN(guess) || guess <= 0 {
		return IVDefaultGuess
	}
	return clampVol(guess)
}

func clampVol(sigma float64) float64 {
	if math.IsNaN(sigma) {
		return IVDefaultGuess
	}
	return math.Min(IVMaxVol, math.Max(IVMinVol, sigma))
}

// vegaAt is the undivided vega used by the Newton step.
func vegaAt(p Params) float64 {
	if p.degenerate() || p.Spot <= 0 || p.Strike <= 0 {
		return 0
	}
	d1, _ := D1D2(p)
	sqrtT := math.Sqrt(p.T)
	return rawVega(p.Spot, math.Exp(-p.Dividend*p.T), NormalPDF(d1), sqrtT)
}
