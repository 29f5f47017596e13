package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.RunObserver = (*OTelRunObserver)(nil)

// OTelRunObserver implements run observability using OpenTelemetry
// tracing. It records span events for each sample and for the run's
// terminal transition, keeping tracing concerns out of the orchestrator.
type OTelRunObserver struct {
	useCaseID string
	tracer    trace.Tracer
}

// NewOTelRunObserver creates an observer emitting events for one use case.
func NewOTelRunObserver(useCaseID string) *OTelRunObserver {
	return &OTelRunObserver{
		useCaseID: useCaseID,
		tracer:    otel.Tracer("baseline-runner"),
	}
}

// SampleRecorded implements the RunObserver interface by attaching a
// sample event to the active span.
func (o *OTelRunObserver) SampleRecorded(ctx context.Context, outcome domain.SampleOutcome, err error) {
	span := trace.SpanFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("use_case", o.useCaseID),
		attribute.Bool("success", err == nil && outcome.Success),
		attribute.Int64("tokens", outcome.Cost.Tokens),
		attribute.Int64("elapsed_ms", outcome.Cost.Elapsed.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	span.AddEvent("sample.recorded", trace.WithAttributes(attrs...))
}

// RunTerminated implements the RunObserver interface by recording the
// terminal transition and final statistics on a dedicated span.
func (o *OTelRunObserver) RunTerminated(ctx context.Context, termination domain.Termination, stats domain.Stats) {
	_, span := o.tracer.Start(ctx, "Run.Terminated")
	defer span.End()

	span.SetAttributes(
		attribute.String("use_case", o.useCaseID),
		attribute.String("termination.reason", string(termination.Reason)),
		attribute.String("termination.details", termination.Details),
		attribute.Int("samples.planned", stats.Planned),
		attribute.Int("samples.executed", stats.Executed),
		attribute.Float64("observed_rate", stats.ObservedRate),
		attribute.Float64("ci_lower", stats.CILower),
		attribute.Float64("ci_upper", stats.CIUpper),
		attribute.Int64("tokens", stats.Tokens),
	)
}
