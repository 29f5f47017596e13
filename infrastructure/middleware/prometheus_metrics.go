package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.RunObserver = (*PrometheusRunMetrics)(nil)

// PrometheusRunMetrics implements the RunObserver interface using
// Prometheus. It provides real-time monitoring of sample throughput,
// token consumption, and run terminations for the baseline harness.
type PrometheusRunMetrics struct {
	useCaseID string

	samplesTotal   *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	sampleDuration *prometheus.HistogramVec
	observedRate   *prometheus.GaugeVec
	terminations   *prometheus.CounterVec
}

// NewPrometheusRunMetrics creates run metrics for one use case and
// registers them with the given registerer. Passing nil registers with
// the default Prometheus registry.
func NewPrometheusRunMetrics(useCaseID string, reg prometheus.Registerer) *PrometheusRunMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRunMetrics{
		useCaseID: useCaseID,
		samplesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseline_samples_total",
				Help: "Total number of sample executions recorded, by result.",
			},
			[]string{"use_case", "result"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseline_tokens_consumed_total",
				Help: "Total number of tokens consumed across all samples.",
			},
			[]string{"use_case"},
		),
		sampleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baseline_sample_duration_seconds",
				Help:    "Wall-clock duration of individual sample executions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"use_case"},
		),
		observedRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "baseline_observed_success_rate",
				Help: "Observed success rate at the end of a run.",
			},
			[]string{"use_case"},
		),
		terminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseline_run_terminations_total",
				Help: "Run terminations by reason.",
			},
			[]string{"use_case", "reason"},
		),
	}
}

// SampleRecorded implements the RunObserver interface by counting the
// sample and observing its cost.
func (m *PrometheusRunMetrics) SampleRecorded(ctx context.Context, outcome domain.SampleOutcome, err error) {
	result := "success"
	switch {
	case err != nil:
		result = "error"
	case !outcome.Success:
		result = "failure"
	}

	m.samplesTotal.WithLabelValues(m.useCaseID, result).Inc()
	if err == nil {
		m.tokensTotal.WithLabelValues(m.useCaseID).Add(float64(outcome.Cost.Tokens))
		m.sampleDuration.WithLabelValues(m.useCaseID).Observe(outcome.Cost.Elapsed.Seconds())
	}
}

// RunTerminated implements the RunObserver interface by recording the
// final observed rate and the termination reason.
func (m *PrometheusRunMetrics) RunTerminated(ctx context.Context, termination domain.Termination, stats domain.Stats) {
	m.observedRate.WithLabelValues(m.useCaseID).Set(stats.ObservedRate)
	m.terminations.WithLabelValues(m.useCaseID, string(termination.Reason)).Inc()
}
