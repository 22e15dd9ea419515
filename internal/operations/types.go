package operations

import (
	"time"
)

// Setup step identifiers
const (
	StepIDInstall    = "install"
	StepIDPreprocess = "preprocess"
)

// Setup step names
const (
	StepNameInstall    = "Dependency Installation"
	StepNamePreprocess = "Data Pre-processing"
)

// Context keys for operation state
const (
	ContextKeyInstalledPackages = "installed_packages"
	ContextKeyPreprocessCommand = "preprocess_command"
	ContextKeyOutputTail        = "output_tail"
)

// Operation modes
const (
	ModeSetup      = "setup"
	ModePreprocess = "preprocess"
)

// WebSocket event types
const (
	EventTypeOperationSnapshot = "operation:snapshot"
	EventTypeOperationStatus   = "operation:status"
	EventTypeOperationProgress = "operation:progress"
	EventTypeOperationComplete = "operation:complete"
	EventTypeOperationError    = "operation:error"
)

// DefaultStageTimeout of zero means a step may run indefinitely.
const DefaultStageTimeout time.Duration = 0

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// NoRetry runs every step exactly once.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID         string                 `json:"id"`
	Mode       string                 `json:"mode"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string               `json:"id"`
	Status   OperationStatusValue `json:"status"`
	Duration time.Duration        `json:"duration"`
	Steps    []*StepState         `json:"steps"`
	Error    string               `json:"error,omitempty"`
}

// Step returns the state of the named step, or nil.
func (r *OperationResponse) Step(id string) *StepState {
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
