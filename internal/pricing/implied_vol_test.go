package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	base := []Params{
		{Type: Call, Spot: 100, Strike: 100, T: 0.5, Rate: 0.03},
		{Type: Put, Spot: 100, Strike: 100, T: 0.5, Rate: 0.03},
		{Type: Call, Spot: 42, Strike: 40, T: 0.5, Rate: 0.10},
		{Type: Put, Spot: 95, Strike: 110, T: 90 / DaysPerYear, Rate: 0.02, Dividend: 0.015},
		{Type: Call, Spot: 12.5, Strike: 11, T: 2, Rate: 0.035, Dividend: 0.04},
	}
	for _, p := range base {
		for _, volPct := range []float64{15, 25, 40, 60} {
			price := Price(p.WithVol(volPct / 100))
			sol, err := ImpliedVolatility(p, price)
			require.NoError(t, err, "%+v vol=%v", p, volPct)
			assert.InDelta(t, volPct, sol.Volatility*100, 1e-3, "%+v", p)
			assert.LessOrEqual(t, sol.Iterations, IVMaxIterations)
			assert.Less(t, math.Abs(sol.Error), IVTolerance)
		}
	}
}

func TestImpliedVolatilityRoundTripAcrossMoneyness(t *testing.T) {
	spots := []float64{50, 75, 90, 100, 110, 115, 125, 150, 200}
	terms := []float64{1 / DaysPerYear, 30 / DaysPerYear, 0.25, 0.5, 1, 5}
	covered := 0
	for _, typ := range []OptionType{Call, Put} {
		for _, s := range spots {
			for _, term := range terms {
				for _, vol := range []float64{0.15, 0.25, 0.40, 0.60} {
					p := Params{Type: typ, Spot: s, Strike: 100, T: term, Rate: 0.05, Dividend: 0.02}
					trial := p.WithVol(vol)
					price := Price(trial)
					// deep in or out of the money the price carries no volatility information
					if vegaAt(trial) < 1e-2 || price < 1e-4 {
						continue
					}
					covered++
					sol, err := ImpliedVolatility(p, price)
					require.NoError(t, err, "%+v vol=%v", p, vol)
					assert.InDelta(t, vol, sol.Volatility, 1e-4, "%+v", p)
					assert.Less(t, math.Abs(sol.Error), IVTolerance)
				}
			}
		}
	}
	assert.GreaterOrEqual(t, covered, 300)
}

func TestImpliedVolatilityOutOfTheMoney(t *testing.T) {
	cases := []struct {
		p   Params
		vol float64
	}{
		{Params{Type: Call, Spot: 100, Strike: 120, T: 0.25, Rate: 0.05}, 0.30},
		{Params{Type: Put, Spot: 115, Strike: 100, T: 0.5, Rate: 0.05}, 0.25},
	}
	for _, tc := range cases {
		sol, err := ImpliedVolatility(tc.p, Price(tc.p.WithVol(tc.vol)))
		require.NoError(t, err, "%+v", tc.p)
		assert.InDelta(t, tc.vol, sol.Volatility, 1e-6)
		assert.Less(t, sol.Iterations, 20)
	}
}

func TestImpliedVolatilityIgnoresInputVol(t *testing.T) {
	p := Params{Type: Call, Spot: 100, Strike: 105, T: 0.25, Rate: 0.05, Vol: 0.2}
	price := Price(p)

	a, err := ImpliedVolatility(p, price)
	require.NoError(t, err)
	b, err := ImpliedVolatility(p.WithVol(3), price)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestImpliedVolatilityNonPositivePrice(t *testing.T) {
	p := Params{Type: Call, Spot: 100, Strike: 100, T: 1, Rate: 0.05}
	for _, mp := range []float64{0, -1, math.NaN()} {
		sol, err := ImpliedVolatility(p, mp)
		assert.ErrorIs(t, err, ErrNonPositivePrice)
		assert.ErrorIs(t, err, ErrIVNotFound)
		assert.Zero(t, sol.Volatility)
	}
}

func TestImpliedVolatilityNoConvergence(t *testing.T) {
	// below the zero-volatility bound, no volatility reproduces the price
	p := Params{Type: Call, Spot: 100, Strike: 100, T: 1, Rate: 0.05}
	sol, err := ImpliedVolatility(p, 0.00001)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConvergence))
	assert.True(t, errors.Is(err, ErrIVNotFound))
	assert.Zero(t, sol.Volatility)
	assert.Equal(t, IVMaxIterations, sol.Iterations)
}

func TestImpliedVolatilityAboveUpperBound(t *testing.T) {
	// a call can never be worth more than the discounted spot
	p := Params{Type: Call, Spot: 100, Strike: 100, T: 1}
	_, err := ImpliedVolatility(p, 150)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestImpliedVolatilityAtExpiry(t *testing.T) {
	p := Params{Type: Call, Spot: 105, Strike: 100}
	_, err := ImpliedVolatility(p, 6)
	assert.ErrorIs(t, err, ErrIVNotFound)
}

func TestInitialVolGuess(t *testing.T) {
	g := InitialVolGuess(100, 0.5, 5)
	assert.InDelta(t, math.Sqrt(2*math.Pi/0.5)*0.05, g, 1e-12)

	assert.Equal(t, IVDefaultGuess, InitialVolGuess(100, -1, 5))
	assert.Equal(t, IVDefaultGuess, InitialVolGuess(100, 0.5, 0))
	assert.Equal(t, IVMaxVol, InitialVolGuess(100, 0.5, 1e6))
	assert.Equal(t, IVMinVol, InitialVolGuess(1e9, 0.5, 1e-3))
}

func TestImpliedVolatilityDeterministic(t *testing.T) {
	p := Params{Type: Put, Spot: 80, Strike: 100, T: 0.1, Rate: 0.01}
	price := Price(p.WithVol(0.35))
	first, err := ImpliedVolatility(p, price)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ImpliedVolatility(p, price)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
