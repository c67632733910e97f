// Package warrant converts per-option kernel output into warrant terms.
//
// A warrant covers Ratio units of one option, so its price and delta are the
// option's scaled by Ratio. Money amounts are carried as decimals rounded to
// Places digits.
package warrant

import (
	"errors"

	"WarrantCalc/internal/pricing"

	"github.com/shopspring/decimal"
)

// Places is the rounding applied to every money field.
const Places = 4

// ErrInvalidRatio is returned when the conversion ratio is not positive.
var ErrInvalidRatio = errors.New("conversion ratio must be positive")

// Quote is a priced warrant.
type Quote struct {
	Type      string          `json:"type"`
	Ratio     decimal.Decimal `json:"ratio"`
	Price     decimal.Decimal `json:"price"`
	Delta     decimal.Decimal `json:"delta"`
	Breakeven decimal.Decimal `json:"breakeven"`
	// Premium is the breakeven distance from spot as a percentage of spot.
	Premium decimal.Decimal `json:"premium_pct"`
}

// FromResult scales an option Result by ratio.
func FromResult(p pricing.Params, res pricing.Result, ratio float64) (Quote, error) {
	if !(ratio > 0) {
		return Quote{}, ErrInvalidRatio
	}

	r := decimal.NewFromFloat(ratio)
	optPrice := decimal.NewFromFloat(res.Price)
	strike := decimal.NewFromFloat(p.Strike)
	price := optPrice.Mul(r)

	q := Quote{
		Type:      p.Type.String(),
		Ratio:     r,
		Price:     price.Round(Places),
		Delta:     decimal.NewFromFloat(res.Greeks.Delta).Mul(r).Round(Places),
		Breakeven: Breakeven(p.Type, strike, price, r).Round(Places),
	}
	if p.Spot > 0 {
		spot := decimal.NewFromFloat(p.Spot)
		q.Premium = q.Breakeven.Sub(spot).Abs().Div(spot).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return q, nil
}

// Breakeven is the underlying level at expiry where the holder recovers the
// warrant price: strike - price/ratio for puts, strike + price/ratio for calls.
func Breakeven(t pricing.OptionType, strike, warrantPrice, ratio decimal.Decimal) decimal.Decimal {
	perOption := warrantPrice.Div(ratio)
	if t == pricing.Put {
		return strike.Sub(perOption)
	}
	return strike.Add(perOption)
}

// OptionPriceFromWarrant is the per-option price implied by a quoted warrant
// price, which is what the implied volatility solver expects.
func OptionPriceFromWarrant(warrantPrice, ratio float64) (float64, error) {
	if !(ratio > 0) {
		return 0, ErrInvalidRatio
	}
	return decimal.NewFromFloat(warrantPrice).Div(decimal.NewFromFloat(ratio)).InexactFloat64(), nil
}
