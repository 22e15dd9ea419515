package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
)

// OperationTracer provides OpenTelemetry instrumentation for operations.
// A nil *OperationTracer is valid and records nothing.
type OperationTracer struct {
	tracer          trace.Tracer
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a new operation tracer
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &OperationTracer{
		tracer:          providers.Tracer,
		businessMetrics: businessMetrics,
	}, nil
}

// Metrics returns the business metrics used by the tracer
func (pt *OperationTracer) Metrics() *infrastructure.BusinessMetrics {
	if pt == nil {
		return nil
	}
	return pt.businessMetrics
}

// TraceOperationExecution creates a span for the entire operation execution
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, req OperationRequest) (context.Context, trace.Span) {
	if pt == nil || pt.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := pt.tracer.Start(ctx, fmt.Sprintf("operation.execute.%s", req.Mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", req.ID),
			attribute.String("operation.mode", req.Mode),
		),
	)
	infrastructure.RecordActiveOperationChange(ctx, pt.businessMetrics, 1, req.Mode)
	return ctx, span
}

// TraceStageExecution creates a span for one Step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	if pt == nil || pt.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return pt.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stageID),
		),
	)
}

// RecordOperationCompletion records operation completion on the span and meters
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, req OperationRequest, duration time.Duration, err error) {
	if pt == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
		infrastructure.RecordError(ctx, err, trace.WithAttributes(attribute.String("operation.id", req.ID)))
	}

	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	infrastructure.RecordOperationMetrics(ctx, pt.businessMetrics, req.ID, req.Mode, duration, err == nil, err)
	infrastructure.RecordActiveOperationChange(ctx, pt.businessMetrics, -1, req.Mode)

	if err == nil {
		span.SetStatus(codes.Ok, "operation completed successfully")
	} else {
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordStageCompletion records Step completion with metrics and span events
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, attempts int, err error) {
	if pt == nil {
		return
	}

	status := string(StepStatusCompleted)
	if err != nil {
		status = string(StepStatusFailed)
		infrastructure.RecordError(ctx, err, trace.WithAttributes(
			attribute.String("step.id", stageID),
			attribute.String("error.type", string(GetErrorType(err))),
		))
	}

	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Int("step.attempts", attempts),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	infrastructure.RecordOperationStepMetrics(ctx, pt.businessMetrics, stageID, status, duration)

	if err == nil {
		span.SetStatus(codes.Ok, "step completed successfully")
	} else {
		span.SetStatus(codes.Error, "step execution failed")
	}
}
