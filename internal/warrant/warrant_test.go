package warrant

import (
	"testing"

	"WarrantCalc/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFromResultPut(t *testing.T) {
	p := pricing.Params{Type: pricing.Put, Spot: 95, Strike: 100}
	res := pricing.Result{Price: 2.5, Greeks: pricing.Greeks{Delta: -0.45}}

	q, err := FromResult(p, res, 0.1)
	require.NoError(t, err)

	assert.Equal(t, "put", q.Type)
	assert.True(t, q.Price.Equal(dec("0.25")), q.Price.String())
	assert.True(t, q.Delta.Equal(dec("-0.045")), q.Delta.String())
	assert.True(t, q.Breakeven.Equal(dec("97.5")), q.Breakeven.String())
	assert.True(t, q.Premium.Equal(dec("2.63")), q.Premium.String())
}

func TestFromResultCall(t *testing.T) {
	p := pricing.Params{Type: pricing.Call, Spot: 42, Strike: 40, T: 0.5, Rate: 0.1, Vol: 0.2}
	res := pricing.Evaluate(p)

	q, err := FromResult(p, res, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, res.Price*0.5, q.Price.InexactFloat64(), 1e-4)
	assert.InDelta(t, res.Greeks.Delta*0.5, q.Delta.InexactFloat64(), 1e-4)
	assert.InDelta(t, 40+res.Price, q.Breakeven.InexactFloat64(), 1e-4)
	assert.LessOrEqual(t, int32(-q.Price.Exponent()), int32(Places))
}

func TestFromResultRejectsRatio(t *testing.T) {
	p := pricing.Params{Type: pricing.Call, Spot: 42, Strike: 40}
	for _, r := range []float64{0, -1} {
		_, err := FromResult(p, pricing.Result{Price: 1}, r)
		assert.ErrorIs(t, err, ErrInvalidRatio)
	}
}

func TestBreakeven(t *testing.T) {
	assert.True(t, Breakeven(pricing.Put, dec("50"), dec("0.8"), dec("0.2")).Equal(dec("46")))
	assert.True(t, Breakeven(pricing.Call, dec("50"), dec("0.8"), dec("0.2")).Equal(dec("54")))
}

func TestOptionPriceFromWarrant(t *testing.T) {
	got, err := OptionPriceFromWarrant(0.35, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got, 1e-12)

	_, err = OptionPriceFromWarrant(0.35, 0)
	assert.ErrorIs(t, err, ErrInvalidRatio)
}

func TestRoundTripThroughSolver(t *testing.T) {
	p := pricing.Params{Type: pricing.Put, Spot: 95, Strike: 110, T: 0.25, Rate: 0.02, Vol: 0.32}
	q, err := FromResult(p, pricing.Evaluate(p), 0.1)
	require.NoError(t, err)

	optPrice, err := OptionPriceFromWarrant(q.Price.InexactFloat64(), 0.1)
	require.NoError(t, err)
	sol, err := pricing.ImpliedVolatility(p, optPrice)
	require.NoError(t, err)
	// the warrant price is rounded to 4dp, so the recovered vol is close but not exact
	assert.InDelta(t, 0.32, sol.Volatility, 1e-3)
}
