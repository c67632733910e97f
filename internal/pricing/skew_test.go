package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestDefaultSkewParameters(t *testing.T) {
	sp := DefaultSkewParameters()
	assert.Equal(t, SkewParameters{
		PutSkewIntensity:  2.2,
		CallSkewIntensity: 0.5,
		SmileCurvature:    0.5,
		TimeDecayExponent: 0.4,
		ITMDamping:        0.25,
		MinVolRatio:       0.6,
		MaxVolRatio:       2.5,
	}, sp)
	require.NoError(t, sp.Validate())
}

func TestNewSkewParametersMergesOverrides(t *testing.T) {
	sp, err := NewSkewParameters(SkewOverrides{PutSkewIntensity: ptr(3), SmileCurvature: ptr(0)})
	require.NoError(t, err)

	assert.Equal(t, 3.0, sp.PutSkewIntensity)
	assert.Equal(t, 0.0, sp.SmileCurvature)
	assert.Equal(t, 0.5, sp.CallSkewIntensity)
	assert.Equal(t, 2.5, sp.MaxVolRatio)
}

func TestNewSkewParametersRejectsBadCalibration(t *testing.T) {
	_, err := NewSkewParameters(SkewOverrides{MinVolRatio: ptr(-0.1)})
	assert.Error(t, err)
	_, err = NewSkewParameters(SkewOverrides{MaxVolRatio: ptr(0.9)})
	assert.Error(t, err)
}

func TestAdjustVolatilityGuards(t *testing.T) {
	sp := DefaultSkewParameters()
	assert.Equal(t, 25.0, AdjustVolatility(25, 0, 100, 0.1, Put, sp))
	assert.Equal(t, 25.0, AdjustVolatility(25, 100, -5, 0.1, Put, sp))
	assert.Equal(t, 25.0, AdjustVolatility(25, 100, 90, 0, Call, sp))
	assert.Equal(t, -3.0, AdjustVolatility(-3, 100, 90, 0.5, Call, sp))
	assert.Equal(t, 0.0, AdjustVolatility(0, 100, 90, 0.5, Call, sp))
}

func TestAdjustVolatilityInvalidCalibrationUsesDefaults(t *testing.T) {
	want := AdjustVolatility(25, 100, 80, 0.1, Put, DefaultSkewParameters())
	assert.Greater(t, want, 25.0)

	assert.Equal(t, want, AdjustVolatility(25, 100, 80, 0.1, Put, SkewParameters{}))

	bad := DefaultSkewParameters()
	bad.MaxVolRatio = 0.5
	assert.Equal(t, want, AdjustVolatility(25, 100, 80, 0.1, Put, bad))
}

func TestAdjustVolatilityATMUnchanged(t *testing.T) {
	sp := DefaultSkewParameters()
	assert.Equal(t, 30.0, AdjustVolatility(30, 100, 100, 0.2, Put, sp))
	assert.Equal(t, 30.0, AdjustVolatility(30, 100, 100, 0.2, Call, sp))
}

func TestAdjustVolatilityPutMonotone(t *testing.T) {
	sp := DefaultSkewParameters()
	tenor := 30 / DaysPerYear
	prev := AdjustVolatility(25, 100, 100, tenor, Put, sp)
	for ratio := 1.01; ratio <= 1.25; ratio += 0.01 {
		cur := AdjustVolatility(25, 100*ratio, 100, tenor, Put, sp)
		assert.Greater(t, cur, prev, "S/K=%v", ratio)
		prev = cur
	}
}

func TestAdjustVolatilityCallMonotone(t *testing.T) {
	sp := DefaultSkewParameters()
	tenor := 30 / DaysPerYear
	prev := AdjustVolatility(25, 100, 100, tenor, Call, sp)
	for ratio := 0.99; ratio >= 0.75; ratio -= 0.01 {
		cur := AdjustVolatility(25, 100*ratio, 100, tenor, Call, sp)
		assert.Greater(t, cur, prev, "S/K=%v", ratio)
		prev = cur
	}
}

func TestAdjustVolatilityPutSteeperThanCall(t *testing.T) {
	sp := DefaultSkewParameters()
	tenor := 60 / DaysPerYear
	// both are 10% out of the money
	otmPut := AdjustVolatility(20, 110, 100, tenor, Put, sp)
	otmCall := AdjustVolatility(20, 100, 110, tenor, Call, sp)
	assert.Greater(t, otmPut, otmCall)
	assert.Greater(t, otmCall, 20.0)
}

func TestAdjustVolatilityBounds(t *testing.T) {
	aggressive := DefaultSkewParameters().Merge(SkewOverrides{PutSkewIntensity: ptr(50), SmileCurvature: ptr(40)})
	params := []SkewParameters{DefaultSkewParameters(), aggressive}
	spots := []float64{1e-6, 1, 50, 99.9, 100, 100.1, 250, 1e6}
	tenors := []float64{1e-6, 1 / DaysPerYear, 0.05, 1, 30}

	for _, sp := range params {
		for _, typ := range []OptionType{Call, Put} {
			for _, s := range spots {
				for _, tt := range tenors {
					got := AdjustVolatility(20, s, 100, tt, typ, sp)
					assert.False(t, math.IsNaN(got))
					assert.GreaterOrEqual(t, got, 20*sp.MinVolRatio)
					assert.LessOrEqual(t, got, 20*sp.MaxVolRatio)
				}
			}
		}
	}
}

func TestSkewTimeFactor(t *testing.T) {
	assert.InDelta(t, 1.0, skewTimeFactor(SkewReferenceTenor, 0.4), 1e-12)
	assert.Less(t, skewTimeFactor(1, 0.4), 1.0)
	assert.LessOrEqual(t, skewTimeFactor(1e-9, 0.4), MaxTimeFactor)
	assert.Equal(t, MaxTimeFactor, skewTimeFactor(1e-9, 1))
}

func TestSmile(t *testing.T) {
	sp := DefaultSkewParameters()
	pts := Smile(22, 100, 45/DaysPerYear, Put, []float64{80, 90, 100, 110, 120}, sp)
	require.Len(t, pts, 5)

	assert.Equal(t, 100.0, pts[2].Strike)
	assert.Equal(t, 22.0, pts[2].Vol)
	assert.InDelta(t, math.Log(100.0/80), pts[0].Moneyness, 1e-12)
	// low strikes are the out-of-the-money puts
	assert.Greater(t, pts[0].Vol, pts[1].Vol)
	assert.Greater(t, pts[1].Vol, pts[2].Vol)
	assert.Greater(t, pts[0].Vol, pts[4].Vol)
}
