package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	analysis  *AnalysisService
	ops       *OperationService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. Any dependency may be nil; its
// check is then reported as not ready.
func NewHealthService(version string, paths *config.Paths, analysis *AnalysisService, ops *OperationService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		analysis:  analysis,
		ops:       ops,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the dashboard can serve analyses
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"input":      hs.checkInput(),
			"data":       hs.checkData(ctx),
			"operations": hs.checkOperations(),
			"websocket":  hs.checkWebSocket(),
		},
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.DebugContext(ctx, "Service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"name":         config.AppName,
		"version":      hs.version,
		"build":        contracts.CurrentBuild(),
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkInput() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "paths not configured"}
	}
	if _, err := os.Stat(hs.paths.InputDir); err != nil {
		// Input is only needed to preprocess; existing data can still be served.
		return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("Input directory not found: %s", hs.paths.InputDir)}
	}
	return ServiceHealth{Status: StatusReady, Message: hs.paths.InputDir}
}

func (hs *HealthService) checkData(ctx context.Context) ServiceHealth {
	if hs.analysis == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "analysis service not initialized"}
	}
	st, err := hs.analysis.Status(ctx)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("Processed data unreadable: %v", err)}
	}
	if !st.Loaded {
		return ServiceHealth{Status: StatusNotReady, Message: "No pre-processed data found"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d buildings, updated %s", st.Buildings, st.UpdatedAt.Format(time.RFC3339)),
	}
}

func (hs *HealthService) checkOperations() ServiceHealth {
	if hs.ops == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "operation service not initialized"}
	}
	if id, running := hs.ops.Running(); running {
		return ServiceHealth{Status: StatusReady, Message: "running " + id}
	}
	return ServiceHealth{Status: StatusReady, Message: "idle"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "websocket hub not initialized"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
}
