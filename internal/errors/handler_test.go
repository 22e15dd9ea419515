package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("analysis: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "validation api error",
			err:        ErrValidation("freq", "must be one of H D W M"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "archive missing",
			err:        fmt.Errorf("load: %w", domain.ErrArchiveNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotFound,
		},
		{
			name:       "building missing",
			err:        fmt.Errorf("%w: Building Z", domain.ErrBuildingNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   TypeBuildingNotFound,
		},
		{
			name:       "span too long",
			err:        fmt.Errorf("zonal cooling calculation failed: %w", domain.ErrSpanTooLong),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "zone missing",
			err:        domain.ErrZoneNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeZoneNotFound,
		},
		{
			name:       "operation running",
			err:        domain.ErrOperationRunning,
			wantStatus: http.StatusConflict,
			wantType:   TypeOperationRunning,
		},
		{
			name:       "unknown frequency",
			err:        fmt.Errorf("%w: Q", domain.ErrUnknownFrequency),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "empty input",
			err:        fmt.Errorf("%w: iat", domain.ErrEmptyInput),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeAnalysisFailed,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/buildings/x/analysis", nil)
			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/buildings/x/analysis", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleNilError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, rec.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_ArchiveHint(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/api/buildings", nil), domain.ErrArchiveNotFound)

	body := decodeProblem(t, rec)
	assert.Equal(t, PreprocessHint, body["detail"])
}

func TestErrorHandler_APIErrorDetails(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodPost, "/api/analysis/custom", nil),
		ErrValidation("iat", "file is required"))

	body := decodeProblem(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	errs, ok := details["errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "iat", errs[0].(map[string]interface{})["field"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	handler.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "kaboom", body["panic"])
	assert.Contains(t, body, "stack")
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/buildings", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}

func TestProblemMarshalFlattensExtensions(t *testing.T) {
	problem := newProblem(http.StatusConflict, TypeConflict, "Conflict", "", "").
		Set("operation_id", "op-1")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "op-1", body["operation_id"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}
