package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalCDFReferenceValues(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1, 0.8413447},
		{-1, 0.1586553},
		{2, 0.9772499},
		{-2, 0.0227501},
		{0.35, 0.6368307},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, NormalCDF(tc.x), 1e-5, "N(%v)", tc.x)
	}
}

func TestNormalCDFSymmetry(t *testing.T) {
	for x := -12.0; x <= 12.0; x += 0.037 {
		assert.InDelta(t, 1.0, NormalCDF(x)+NormalCDF(-x), 1e-7, "x=%v", x)
	}
}

func TestNormalCDFTails(t *testing.T) {
	assert.Equal(t, 0.0, NormalCDF(-10.5))
	assert.Equal(t, 1.0, NormalCDF(10.5))
	assert.Equal(t, 0.0, NormalCDF(math.Inf(-1)))
	assert.Equal(t, 1.0, NormalCDF(math.Inf(1)))
}

func TestNormalCDFMonotone(t *testing.T) {
	prev := NormalCDF(-4)
	for x := -3.99; x <= 4; x += 0.01 {
		cur := NormalCDF(x)
		assert.GreaterOrEqual(t, cur, prev, "x=%v", x)
		prev = cur
	}
}

func TestNormalPDF(t *testing.T) {
	assert.InDelta(t, 0.3989423, NormalPDF(0), 1e-7)
	assert.InDelta(t, 0.2419707, NormalPDF(1), 1e-7)
	assert.Equal(t, NormalPDF(1.3), NormalPDF(-1.3))
}
