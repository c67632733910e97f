package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordQuote("put")
	r.RecordQuote("put")
	r.RecordQuote("call")
	r.RecordIV("converged", 4)
	r.RecordIV("no_convergence", 100)
	r.RecordError("quote_input")
	r.RecordLatency("quote", 0.0002)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.quotesTotal.WithLabelValues("put")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.quotesTotal.WithLabelValues("call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ivTotal.WithLabelValues("no_convergence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("quote_input")))

	n, err := testutil.GatherAndCount(reg, "warrantcalc_implied_vol_iterations", "warrantcalc_operation_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
