package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-baseline/internal/domain"
)

func TestPrometheusRunMetricsSampleRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusRunMetrics("checkout-refund", reg)

	metrics.SampleRecorded(context.Background(), domain.SampleOutcome{
		Success: true,
		Cost:    domain.CostVector{Elapsed: 200 * time.Millisecond, Tokens: 30},
	}, nil)
	metrics.SampleRecorded(context.Background(), domain.SampleOutcome{
		Cost: domain.CostVector{Elapsed: 100 * time.Millisecond, Tokens: 20},
	}, nil)
	metrics.SampleRecorded(context.Background(), domain.SampleOutcome{}, errors.New("boom"))

	assert.InDelta(t, 1.0, testutil.ToFloat64(
		metrics.samplesTotal.WithLabelValues("checkout-refund", "success")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		metrics.samplesTotal.WithLabelValues("checkout-refund", "failure")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		metrics.samplesTotal.WithLabelValues("checkout-refund", "error")), 1e-9)

	// Errored samples contribute no cost.
	assert.InDelta(t, 50.0, testutil.ToFloat64(
		metrics.tokensTotal.WithLabelValues("checkout-refund")), 1e-9)
}

func TestPrometheusRunMetricsRunTerminated(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusRunMetrics("checkout-refund", reg)

	metrics.RunTerminated(context.Background(),
		domain.Termination{Reason: domain.TerminationTimeBudgetExhausted, Details: "elapsed"},
		domain.Stats{Executed: 40, ObservedRate: 0.85},
	)

	assert.InDelta(t, 0.85, testutil.ToFloat64(
		metrics.observedRate.WithLabelValues("checkout-refund")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		metrics.terminations.WithLabelValues("checkout-refund", "TIME_BUDGET_EXHAUSTED")), 1e-9)
}

func TestPrometheusRunMetricsDefaultRegistry(t *testing.T) {
	// A dedicated registry keeps the test isolated; nil must not panic and
	// falls back to the default registerer, so exercise it with unique
	// metric names only once per process.
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		NewPrometheusRunMetrics("isolated", reg)
	})
}
