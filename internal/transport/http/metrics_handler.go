package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HubStats reports websocket hub counters
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}

// MetricsHandler serves the Prometheus exposition and the websocket stats
type MetricsHandler struct {
	exposition http.Handler
	hub        HubStats
}

// NewMetricsHandler creates a new metrics handler. exposition is the
// promhttp handler; either argument may be nil.
func NewMetricsHandler(exposition http.Handler, hub HubStats) *MetricsHandler {
	return &MetricsHandler{exposition: exposition, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/websocket", h.GetWebSocketMetrics)
	return r
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		http.Error(w, "metrics are disabled", http.StatusNotFound)
		return
	}
	h.exposition.ServeHTTP(w, r)
}

// GetWebSocketMetrics handles GET /api/metrics/websocket
func (h *MetricsHandler) GetWebSocketMetrics(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		render.JSON(w, r, map[string]interface{}{"active_clients": 0})
		return
	}
	render.JSON(w, r, h.hub.GetHubMetrics())
}
