package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics are the instruments of the setup pipeline and the
// per-building analysis. All Record helpers accept a nil *BusinessMetrics.
type BusinessMetrics struct {
	OperationExecutionsTotal   metric.Int64Counter
	OperationExecutionDuration metric.Float64Histogram
	OperationStepsTotal        metric.Int64Counter
	OperationStepDuration      metric.Float64Histogram
	OperationActiveOperations  metric.Int64UpDownCounter
	OperationErrors            metric.Int64Counter

	BuildingsProcessed metric.Int64Counter
	AnalysisDuration   metric.Float64Histogram
}

// instruments creates instruments on one meter and keeps the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc))
	in.keep(name, err)
	return c
}

func (in *instruments) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	in.keep(name, err)
	return c
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	in.keep(name, err)
	return h
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	in := &instruments{meter: meter}
	m := &BusinessMetrics{
		OperationExecutionsTotal:   in.counter("operation_executions_total", "Setup and preprocess operations started"),
		OperationExecutionDuration: in.seconds("operation_execution_duration_seconds", "Operation duration"),
		OperationStepsTotal:        in.counter("operation_steps_total", "Operation steps run, by status"),
		OperationStepDuration:      in.seconds("operation_step_duration_seconds", "Step duration"),
		OperationActiveOperations:  in.upDown("operation_active_operations", "Operations currently running"),
		OperationErrors:            in.counter("operation_errors_total", "Operations that ended in error"),
		BuildingsProcessed:         in.counter("buildings_processed_total", "Buildings run through the cooling analysis, by outcome"),
		AnalysisDuration:           in.seconds("building_analysis_duration_seconds", "Cooling analysis duration per building"),
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "failure")
	}
	return attribute.String("outcome", "success")
}

func RecordOperationMetrics(ctx context.Context, m *BusinessMetrics, operationID, operationType string, duration time.Duration, success bool, err error) {
	if m == nil {
		return
	}
	kind := attribute.String("operation.type", operationType)
	status := attribute.String("status", "success")
	if !success {
		status = attribute.String("status", "failure")
	}

	m.OperationExecutionsTotal.Add(ctx, 1, metric.WithAttributes(kind))
	m.OperationExecutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(kind, status))
	if err != nil {
		m.OperationErrors.Add(ctx, 1, metric.WithAttributes(kind, attribute.String("error.type", fmt.Sprintf("%T", err))))
	}

	trace.SpanFromContext(ctx).AddEvent("operation.metrics_recorded", trace.WithAttributes(
		attribute.String("operation.id", operationID),
		attribute.Bool("success", success),
		attribute.Float64("duration_seconds", duration.Seconds()),
	))
}

func RecordOperationStepMetrics(ctx context.Context, m *BusinessMetrics, stepID, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("step.id", stepID), attribute.String("status", status))
	m.OperationStepsTotal.Add(ctx, 1, attrs)
	m.OperationStepDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordActiveOperationChange(ctx context.Context, m *BusinessMetrics, delta int64, operationType string) {
	if m == nil {
		return
	}
	m.OperationActiveOperations.Add(ctx, delta, metric.WithAttributes(attribute.String("operation.type", operationType)))
}

// RecordBuildingAnalysis counts one building by outcome and times it.
func RecordBuildingAnalysis(ctx context.Context, m *BusinessMetrics, building string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.BuildingsProcessed.Add(ctx, 1, metric.WithAttributes(outcome(err)))
	m.AnalysisDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("building", building)))
}
