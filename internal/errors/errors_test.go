package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", NotFoundError("building Alpha"), http.StatusNotFound, "NOT_FOUND", "building Alpha not found"},
		{"validation", ErrValidation("freq", "unsupported"), http.StatusBadRequest, "VALIDATION_FAILED", "freq: unsupported"},
		{"conflict", ConflictError("busy"), http.StatusConflict, "CONFLICT", "busy"},
		{"invalid request", InvalidRequestWithError(errors.New("bad multipart")), http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestAPIErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFoundError("zone"))

	var apiErr *APIError
	assert.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "iat", Message: "required"},
		{Field: "map", Message: "required"},
	})

	details, ok := err.Details.(ValidationErrors)
	assert.True(t, ok)
	assert.Len(t, details.Errors, 2)
}
