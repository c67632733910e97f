package pricing

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

const (
	// SkewReferenceTenor normalises the skew to a 30 day contract.
	SkewReferenceTenor = 30 / DaysPerYear
	// MaxTimeFactor caps the short-dated amplification.
	MaxTimeFactor = 2.5
)

var calibrationValidator = validator.New()

// SkewParameters calibrates the volatility-skew adjustment. The values are
// heuristic and meant to be replaced through SkewOverrides.
type SkewParameters struct {
	PutSkewIntensity  float64 `yaml:"put_skew_intensity" json:"put_skew_intensity" default:"2.2" validate:"gte=0"`
	CallSkewIntensity float64 `yaml:"call_skew_intensity" json:"call_skew_intensity" default:"0.5" validate:"gte=0"`
	SmileCurvature    float64 `yaml:"smile_curvature" json:"smile_curvature" default:"0.5" validate:"gte=0"`
	TimeDecayExponent float64 `yaml:"time_decay_exponent" json:"time_decay_exponent" default:"0.4" validate:"gte=0"`
	ITMDamping        float64 `yaml:"itm_damping" json:"itm_damping" default:"0.25" validate:"gte=0,lte=1"`
	MinVolRatio       float64 `yaml:"min_vol_ratio" json:"min_vol_ratio" default:"0.6" validate:"gt=0,lte=1"`
	MaxVolRatio       float64 `yaml:"max_vol_ratio" json:"max_vol_ratio" default:"2.5" validate:"gte=1"`
}

// SkewOverrides carries caller supplied calibration. Nil fields keep the
// default.
type SkewOverrides struct {
	PutSkewIntensity  *float64 `yaml:"put_skew_intensity" json:"put_skew_intensity,omitempty"`
	CallSkewIntensity *float64 `yaml:"call_skew_intensity" json:"call_skew_intensity,omitempty"`
	SmileCurvature    *float64 `yaml:"smile_curvature" json:"smile_curvature,omitempty"`
	TimeDecayExponent *float64 `yaml:"time_decay_exponent" json:"time_decay_exponent,omitempty"`
	ITMDamping        *float64 `yaml:"itm_damping" json:"itm_damping,omitempty"`
	MinVolRatio       *float64 `yaml:"min_vol_ratio" json:"min_vol_ratio,omitempty"`
	MaxVolRatio       *float64 `yaml:"max_vol_ratio" json:"max_vol_ratio,omitempty"`
}

// DefaultSkewParameters returns the built-in calibration.
func DefaultSkewParameters() SkewParameters {
	var sp SkewParameters
	defaults.MustSet(&sp)
	return sp
}

// NewSkewParameters merges o over the defaults and validates the result.
func NewSkewParameters(o SkewOverrides) (SkewParameters, error) {
	sp := DefaultSkewParameters().Merge(o)
	if err := sp.Validate(); err != nil {
		return DefaultSkewParameters(), err
	}
	return sp, nil
}

// Merge returns a copy of sp with every non-nil override applied.
func (sp SkewParameters) Merge(o SkewOverrides) SkewParameters {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&sp.PutSkewIntensity, o.PutSkewIntensity)
	set(&sp.CallSkewIntensity, o.CallSkewIntensity)
	set(&sp.SmileCurvature, o.SmileCurvature)
	set(&sp.TimeDecayExponent, o.TimeDecayExponent)
	set(&sp.ITMDamping, o.ITMDamping)
	set(&sp.MinVolRatio, o.MinVolRatio)
	set(&sp.MaxVolRatio, o.MaxVolRatio)
	return sp
}

// Validate checks the calibration ranges.
func (sp SkewParameters) Validate() error {
	if err := calibrationValidator.Struct(sp); err != nil {
		return fmt.Errorf("skew parameters: %w", err)
	}
	return nil
}

// AdjustVolatility applies the moneyness and term dependent skew to an ATM
// volatility. atmVol is in percent and so is the result. Non-positive inputs
// return atmVol unchanged. A calibration that fails Validate, the zero value
// included, is replaced by DefaultSkewParameters.
//
// Each option type's volatility rises toward its out-of-the-money wing with
// the full intensity and toward the in-the-money wing with ITMDamping times
// the intensity. The quadratic term is always non-negative.
func AdjustVolatility(atmVol, spot, strike, t float64, typ OptionType, sp SkewParameters) float64 {
	if !(atmVol > 0) || !(spot > 0) || !(strike > 0) || !(t > 0) {
		return atmVol
	}
	if sp.Validate() != nil {
		sp = DefaultSkewParameters()
	}

	m := math.Log(spot / strike)
	x := math.Abs(m)

	var slope, curve float64
	switch typ {
	case Put:
		slope, curve = sp.PutSkewIntensity, sp.SmileCurvature
		if m < 0 {
			slope, curve = slope*sp.ITMDamping, curve*sp.ITMDamping
		}
	default:
		slope, curve = sp.CallSkewIntensity, sp.SmileCurvature
		if m > 0 {
			slope, curve = slope*sp.ITMDamping, curve*sp.ITMDamping
		}
	}

	adjustment := skewTimeFactor(t, sp.TimeDecayExponent) * (slope*x + curve*x*x)
	adjusted := atmVol * (1 + adjustment)
	if math.IsNaN(adjusted) {
		return atmVol
	}

	return math.Min(atmVol*sp.MaxVolRatio, math.Max(atmVol*sp.MinVolRatio, adjusted))
}

// skewTimeFactor amplifies short tenors relative to SkewReferenceTenor.
func skewTimeFactor(t, exponent float64) float64 {
	f := math.Pow(SkewReferenceTenor/math.Max(t, SkewReferenceTenor/10), exponent)
	return math.Min(f, MaxTimeFactor)
}

// SmilePoint is one strike of a skew curve.
type SmilePoint struct {
	Strike    float64 `json:"strike"`
	Moneyness float64 `json:"moneyness"`
	Vol       float64 `json:"vol"`
}

// Smile evaluates AdjustVolatility across a strike grid.
func Smile(atmVol, spot, t float64, typ OptionType, strikes []float64, sp SkewParameters) []SmilePoint {
	out := make([]SmilePoint, 0, len(strikes))
	for _, k := range strikes {
		pt := SmilePoint{Strike: k, Vol: AdjustVolatility(atmVol, spot, k, t, typ, sp)}
		if spot > 0 && k > 0 {
			pt.Moneyness = math.Log(spot / k)
		}
		out = append(out, pt)
	}
	return out
}
