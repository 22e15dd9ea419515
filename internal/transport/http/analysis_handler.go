package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	apierrors "github.com/AlexisBnnft/Building-Waste/internal/errors"
	"github.com/AlexisBnnft/Building-Waste/internal/middleware"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temporary files
const multipartMemory = 32 << 20

// Content types of the binary responses
const (
	ContentTypePNG  = "image/png"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// viewRequest holds the parameters shared by the building routes
type viewRequest struct {
	Name      string `json:"name" validate:"required,building_name"`
	Freq      string `query:"freq" validate:"omitempty,freq"`
	Normalize string `query:"normalize" validate:"omitempty,boolean"`
}

// AnalysisHandler serves building analyses, charts and exports
type AnalysisHandler struct {
	service        AnalysisServiceInterface
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "analysis")),
	}
}

// SetMaxUploadBytes bounds the size of custom uploads; 0 means unbounded
func (h *AnalysisHandler) SetMaxUploadBytes(n int64) {
	h.maxUploadBytes = n
}

// RegisterRoutes registers the building and upload routes on r. Call
// SetMaxUploadBytes first.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Route("/buildings", func(r chi.Router) {
		r.Get("/", h.ListBuildings)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/analysis", h.GetAnalysis)
			r.Get("/zones/{zone}", h.GetZone)
			r.Get("/charts/{kind}.png", h.GetChart)
			r.Get("/export.xlsx", h.ExportXLSX)
			r.Get("/export.csv", h.ExportCSV)
		})
	})

	r.With(
		middleware.BodyLimit(h.maxUploadBytes, h.errorHandler),
		middleware.ContentTypeValidator(h.errorHandler, h.logger, "multipart/form-data"),
	).Post("/analysis/custom", h.CustomAnalysis)
}

// ListBuildings handles GET /api/buildings
func (h *AnalysisHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Buildings(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"buildings": names,
		"count":     len(names),
	})
}

// GetAnalysis handles GET /api/buildings/{name}/analysis
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseView(w, r)
	if !ok {
		return
	}

	view, err := h.service.Analysis(r.Context(), req.Name, req.Freq)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetZone handles GET /api/buildings/{name}/zones/{zone}
func (h *AnalysisHandler) GetZone(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseView(w, r)
	if !ok {
		return
	}

	detail, err := h.service.ZoneDetail(r.Context(), req.Name, urlParam(r, "zone"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// GetChart handles GET /api/buildings/{name}/charts/{kind}.png
func (h *AnalysisHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseView(w, r)
	if !ok {
		return
	}

	normalize, _ := strconv.ParseBool(req.Normalize)
	png, err := h.service.Chart(r.Context(), req.Name, urlParam(r, "kind"), req.Freq, normalize)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeBinary(w, ContentTypePNG, "", png)
}

// ExportXLSX handles GET /api/buildings/{name}/export.xlsx
func (h *AnalysisHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseView(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportXLSX(r.Context(), req.Name, req.Freq)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeBinary(w, ContentTypeXLSX, exportFileName(req.Name, "xlsx"), data)
}

// ExportCSV handles GET /api/buildings/{name}/export.csv
func (h *AnalysisHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseView(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(r.Context(), req.Name, req.Freq)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeBinary(w, ContentTypeCSV, exportFileName(req.Name, "csv"), data)
}

// CustomAnalysis handles POST /api/analysis/custom. The form carries one
// file per input key plus an optional freq field.
func (h *AnalysisHandler) CustomAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	freq := r.FormValue("freq")
	if err := h.validator.ValidateStruct(viewRequest{Name: "upload", Freq: freq}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	readers := make(map[string]io.Reader, len(dataprocessing.RequiredInputs))
	var files []multipart.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, input := range dataprocessing.RequiredInputs {
		f, _, err := r.FormFile(input.Key)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(input.Key, err.Error()))
			return
		}
		files = append(files, f)
		readers[input.Key] = f
	}

	h.logger.InfoContext(r.Context(), "Analysing uploaded building",
		slog.Int("files", len(readers)),
		slog.String("freq", freq))

	view, err := h.service.CustomAnalysis(r.Context(), readers, freq)
	if err != nil {
		var inputErr *dataprocessing.InputError
		if errors.As(err, &inputErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(inputErr.Key, inputErr.Err.Error()))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// parseView reads and validates the building name and query parameters.
// On failure it has already written the response.
func (h *AnalysisHandler) parseView(w http.ResponseWriter, r *http.Request) (viewRequest, bool) {
	q := r.URL.Query()
	req := viewRequest{
		Name:      urlParam(r, "name"),
		Freq:      q.Get("freq"),
		Normalize: q.Get("normalize"),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return req, false
	}
	return req, true
}

// urlParam returns the decoded route parameter
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// exportFileName builds the attachment name of an export
func exportFileName(building, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, building)
	return fmt.Sprintf("%s_cooling_analysis.%s", name, ext)
}

func writeBinary(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	if fileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
