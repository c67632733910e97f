package metrics

import (
	domrepo "WarrantCalc/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	quotesTotal  *prometheus.CounterVec
	ivTotal      *prometheus.CounterVec
	ivIterations prometheus.Histogram
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		quotesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warrantcalc_quotes_total",
				Help: "Warrant quotes produced, by option type",
			},
			[]string{"type"},
		),
		ivTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warrantcalc_implied_vol_total",
				Help: "Implied volatility searches, by outcome",
			},
			[]string{"outcome"},
		),
		ivIterations: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warrantcalc_implied_vol_iterations",
				Help:    "Newton iterations used per implied volatility search",
				Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20, 30, 50, 100},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warrantcalc_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warrantcalc_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"operation"},
		),
	}
}

// RecordQuote counts a priced warrant.
func (r *Recorder) RecordQuote(optionType string) {
	r.quotesTotal.WithLabelValues(optionType).Inc()
}

// RecordIV counts an implied volatility search and its iteration count.
func (r *Recorder) RecordIV(outcome string, iterations int) {
	r.ivTotal.WithLabelValues(outcome).Inc()
	r.ivIterations.Observe(float64(iterations))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything. The CLI uses it.
type Nop struct{}

func (Nop) RecordQuote(string)            {}
func (Nop) RecordIV(string, int)          {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}

var (
	_ domrepo.Metrics = (*Recorder)(nil)
	_ domrepo.Metrics = Nop{}
)
