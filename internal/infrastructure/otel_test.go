package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelProvidersAreIndependent(t *testing.T) {
	first, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	second, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	assert.NotSame(t, first.Registry, second.Registry)
}

func TestOTelUnsupportedExporters(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "zipkin"
	_, err := InitializeOTel(cfg, discardLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	cfg = DefaultOTelConfig()
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, discardLogger())
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

func TestBusinessMetricsExposedOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordOperationMetrics(ctx, metrics, "op-1", "setup", time.Second, false, errors.New("boom"))
	RecordOperationStepMetrics(ctx, metrics, "install", "completed", time.Second)
	RecordBuildingAnalysis(ctx, metrics, "Building A", time.Second, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "operation_executions_total")
	assert.Contains(t, body, "buildings_processed_total")
}

func TestMetricsNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordOperationMetrics(context.Background(), nil, "op", "setup", 0, true, nil)
		RecordOperationStepMetrics(context.Background(), nil, "install", "completed", 0)
		RecordActiveOperationChange(context.Background(), nil, 1, "setup")
		RecordBuildingAnalysis(context.Background(), nil, "b", 0, nil)
	})
}

func TestSpanHelpers(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.NotPanics(t, func() { RecordError(ctx, errors.New("boom")) })

	var buf bytes.Buffer
	NewLogger(&buf, "info").InfoContext(ctx, "inside span")
	assert.Contains(t, buf.String(), `"trace_id":"`+traceID+`"`)
}
