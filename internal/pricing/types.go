package pricing

import (
	"fmt"
	"strings"
)

// DaysPerYear is the day-count basis used for year fractions and theta.
const DaysPerYear = 365.25

// OptionType is either Call or Put.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// ParseOptionType accepts "call"/"put" (also "c"/"p"), case-insensitive.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return Call, fmt.Errorf("unknown option type %q", s)
	}
}

// Params holds model inputs. All rates and the volatility are decimals
// (0.28 for 28%) and T is in years.
type Params struct {
	Type     OptionType
	Spot     float64
	Strike   float64
	T        float64
	Rate     float64
	Dividend float64
	Vol      float64
}

// WithVol returns a copy of p with a different volatility.
func (p Params) WithVol(vol float64) Params {
	p.Vol = vol
	return p
}

// Greeks are the first and second order sensitivities.
// Theta is per calendar day, Vega per 1 vol point, Rho per 1 rate point.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Result is a theoretical price with its Greeks.
type Result struct {
	Price  float64 `json:"price"`
	Greeks Greeks  `json:"greeks"`
}

// degenerate reports whether the closed form cannot be applied.
func (p Params) degenerate() bool {
	return p.Vol <= 0 || p.T <= 0
}
