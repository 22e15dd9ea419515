package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// Domain-specific error types
const (
	TypeBuildingNotFound  = "/errors/building/not-found"
	TypeZoneNotFound      = "/errors/zone/not-found"
	TypeDataNotFound      = "/errors/data/not-found"
	TypeAnalysisFailed    = "/errors/analysis/failed"
	TypeOperationNotFound = "/errors/operation/not-found"
	TypeOperationRunning  = "/errors/operation/already-running"
)

// Problem is an RFC 7807 body. Members set with Set are written next to
// the standard ones.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string

	extra map[string]interface{}
}

func newProblem(status int, typ, title, detail, instance string) *Problem {
	return &Problem{Type: typ, Title: title, Status: status, Detail: detail, Instance: instance}
}

// Set adds an extension member
func (p *Problem) Set(key string, value interface{}) *Problem {
	if p.extra == nil {
		p.extra = make(map[string]interface{})
	}
	p.extra[key] = value
	return p
}

// Render sets the response status for render.Render
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, len(p.extra)+5)
	maps.Copy(body, p.extra)
	body["type"] = p.Type
	body["title"] = p.Title
	body["status"] = p.Status
	if p.Detail != "" {
		body["detail"] = p.Detail
	}
	if p.Instance != "" {
		body["instance"] = p.Instance
	}
	return json.Marshal(body)
}

// PreprocessHint is shown when the dashboard has no processed archive.
const PreprocessHint = "No pre-processed data found. Run the setup (or the preprocess program) first."

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.Set("stack", getStackTrace())
	}
	h.write(w, r, problem)
}

// domainProblem maps a sentinel from the domain package to its response.
type domainProblem struct {
	target error
	status int
	typ    string
	title  string
}

var domainProblems = []domainProblem{
	{domain.ErrBuildingNotFound, http.StatusNotFound, TypeBuildingNotFound, "Building Not Found"},
	{domain.ErrZoneNotFound, http.StatusNotFound, TypeZoneNotFound, "Zone Not Found"},
	{domain.ErrUnknownChart, http.StatusNotFound, TypeNotFound, "Chart Not Found"},
	{domain.ErrOperationNotFound, http.StatusNotFound, TypeOperationNotFound, "Operation Not Found"},
	{domain.ErrOperationRunning, http.StatusConflict, TypeOperationRunning, "Operation Already Running"},
	{domain.ErrUnknownFrequency, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{domain.ErrMissingFile, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{domain.ErrInvalidZoneMap, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{domain.ErrSpanTooLong, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{domain.ErrEmptyInput, http.StatusUnprocessableEntity, TypeAnalysisFailed, "Analysis Failed"},
	{domain.ErrNoValidZones, http.StatusUnprocessableEntity, TypeAnalysisFailed, "Analysis Failed"},
	{domain.ErrNothingProcessed, http.StatusUnprocessableEntity, TypeAnalysisFailed, "Analysis Failed"},
}

// codeTypes gives the problem type of each APIError code.
var codeTypes = map[string]string{
	CodeInvalidRequest:   TypeValidation,
	CodeValidation:       TypeValidation,
	CodeUnsupportedMedia: TypeValidation,
	CodeNotFound:         TypeNotFound,
	CodeConflict:         TypeConflict,
	CodeRateLimited:      TypeRateLimit,
	CodePayloadTooLarge:  TypePayloadTooLarge,
	CodeUnavailable:      TypeServiceDown,
}

// ErrorToProblem picks the RFC 7807 body for err. Unknown errors become a
// 500 whose detail does not leak err.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *Problem {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newProblem(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		typ, ok := codeTypes[apiErr.ErrorCode]
		if !ok {
			typ = TypeInternal
		}
		problem := newProblem(apiErr.StatusCode, typ, http.StatusText(apiErr.StatusCode), apiErr.Message, path).
			Set("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.Set("details", apiErr.Details)
		}
		return problem
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newProblem(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), path)
	}

	if errors.Is(err, domain.ErrArchiveNotFound) {
		return newProblem(http.StatusNotFound, TypeDataNotFound, "Processed Data Not Found", PreprocessHint, path)
	}
	for _, p := range domainProblems {
		if errors.Is(err, p.target) {
			return newProblem(p.status, p.typ, p.title, err.Error(), path)
		}
	}

	return newProblem(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path)
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := newProblem(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path)
	if h.includeStack {
		problem.Set("panic", fmt.Sprintf("%v", recovered))
		problem.Set("stack", getStackTrace())
	}
	h.write(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, newProblem(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, newProblem(http.StatusMethodNotAllowed, TypeValidation, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

// write stamps the request ID on p and renders it
func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, p *Problem) {
	p.Set("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, p)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
