package models

import (
	"WarrantCalc/internal/pricing"
	"WarrantCalc/internal/warrant"
)

// Boundary units: Vol, Rate, Dividend and AtmVol are percentages (28 for
// 28%). Tenor is Days to expiry, or Expiry (YYYY-MM-DD or RFC3339) which wins
// when set.

// Contract describes one warrant as quoted by a caller.
type Contract struct {
	Type     string  `json:"type" csv:"type" validate:"required,oneof=call put"`
	Spot     float64 `json:"spot" csv:"spot" validate:"gt=0"`
	Strike   float64 `json:"strike" csv:"strike" validate:"gt=0"`
	Days     float64 `json:"days" csv:"days" validate:"gte=0"`
	Expiry   string  `json:"expiry,omitempty" csv:"expiry"`
	Rate     float64 `json:"rate" csv:"rate" validate:"gte=-100,lte=100"`
	Dividend float64 `json:"dividend" csv:"dividend" validate:"gte=0,lte=100"`
	Ratio    float64 `json:"ratio" csv:"ratio" default:"1" validate:"gt=0"`
}

// SetDefaults canonicalises Type so aliases such as "Call" or "p" pass the
// oneof check. It runs from defaults.Set ahead of validation.
func (c *Contract) SetDefaults() { c.Type = canonicalType(c.Type) }

// canonicalType maps any spelling ParseOptionType accepts to "call" or
// "put". Unknown values are kept for the validator to report.
func canonicalType(s string) string {
	typ, err := pricing.ParseOptionType(s)
	if err != nil {
		return s
	}
	return typ.String()
}

type PriceRequest struct {
	Contract
	Vol float64 `json:"vol" validate:"gt=0,lte=500"`
	// Skew treats Vol as the ATM level and prices with the skew-adjusted vol.
	Skew bool `json:"skew"`
}

type IVRequest struct {
	Contract
	// Price is the warrant's market price; it is divided by Ratio before solving.
	Price float64 `json:"price" validate:"gt=0"`
}

type SkewRequest struct {
	Type        string                `json:"type" validate:"required,oneof=call put"`
	Spot        float64               `json:"spot" validate:"gt=0"`
	Strike      float64               `json:"strike" validate:"gt=0"`
	Days        float64               `json:"days" validate:"gte=0"`
	Expiry      string                `json:"expiry,omitempty"`
	AtmVol      float64               `json:"atm_vol" validate:"gt=0,lte=500"`
	Calibration pricing.SkewOverrides `json:"calibration"`
}

func (r *SkewRequest) SetDefaults() { r.Type = canonicalType(r.Type) }

type SmileRequest struct {
	Type        string                `json:"type" validate:"required,oneof=call put"`
	Spot        float64               `json:"spot" validate:"gt=0"`
	Strikes     []float64             `json:"strikes" validate:"required,min=1,max=200,dive,gt=0"`
	Days        float64               `json:"days" validate:"gte=0"`
	Expiry      string                `json:"expiry,omitempty"`
	AtmVol      float64               `json:"atm_vol" validate:"gt=0,lte=500"`
	Calibration pricing.SkewOverrides `json:"calibration"`
}

func (r *SmileRequest) SetDefaults() { r.Type = canonicalType(r.Type) }

// QuoteResponse carries both the per-option kernel result and the warrant
// view of it.
type QuoteResponse struct {
	ID      string         `json:"id"`
	Years   float64        `json:"years"`
	Vol     float64        `json:"vol"`
	Option  pricing.Result `json:"option"`
	Warrant warrant.Quote  `json:"warrant"`
}

type IVResponse struct {
	ID          string  `json:"id"`
	Years       float64 `json:"years"`
	OptionPrice float64 `json:"option_price"`
	// Vol is the solved implied volatility in percent.
	Vol        float64 `json:"vol"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
}

type SkewResponse struct {
	Years      float64                `json:"years"`
	AtmVol     float64                `json:"atm_vol"`
	Vol        float64                `json:"vol"`
	Moneyness  float64                `json:"moneyness"`
	Parameters pricing.SkewParameters `json:"parameters"`
}

type SmileResponse struct {
	Years      float64                `json:"years"`
	AtmVol     float64                `json:"atm_vol"`
	Points     []pricing.SmilePoint   `json:"points"`
	Parameters pricing.SkewParameters `json:"parameters"`
}
