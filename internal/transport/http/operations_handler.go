package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "github.com/AlexisBnnft/Building-Waste/internal/errors"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/middleware"
)

// OperationStartedResponse is returned when a background operation starts
type OperationStartedResponse struct {
	OperationID string    `json:"operation_id"`
	Status      string    `json:"status"`
	StatusURL   string    `json:"status_url"`
	StartedAt   time.Time `json:"started_at"`
}

// OperationsHandler handles operation-related HTTP requests
type OperationsHandler struct {
	service      OperationServiceInterface
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &OperationsHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "operations")),
		tracer:       otel.Tracer(infrastructure.ServiceName + ".operations"),
	}
}

// Routes returns a chi router for operations endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/preprocess", h.StartPreprocess)
	r.Get("/{id}", h.GetOperation)
	r.Post("/{id}/cancel", h.CancelOperation)
	return r
}

// StartPreprocess handles POST /api/operations/preprocess
func (h *OperationsHandler) StartPreprocess(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "operations_handler.start_preprocess",
		trace.WithAttributes(
			attribute.String("request_id", middleware.GetRequestID(r.Context())),
		),
	)
	defer span.End()

	id, err := h.service.StartPreprocess(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.errorHandler.HandleError(w, r.WithContext(ctx), err)
		return
	}
	span.SetAttributes(attribute.String("operation.id", id))

	h.logger.InfoContext(ctx, "Preprocessing requested",
		slog.String("operation_id", id),
		slog.String("remote_addr", middleware.GetRealIP(r)))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, OperationStartedResponse{
		OperationID: id,
		Status:      "queued",
		StatusURL:   "/api/operations/" + id,
		StartedAt:   time.Now(),
	})
}

// GetOperation handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snapshot)
}

// CancelOperation handles POST /api/operations/{id}/cancel
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"operation_id": id,
		"status":       "cancelling",
	})
}
