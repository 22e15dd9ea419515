package operations

import (
	"sync"
	"time"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of an operation execution
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Steps keyed by ID; order holds registration (execution) order.
	Steps map[string]*StepState `json:"steps"`
	order []string

	// Context carries data between steps
	Context map[string]interface{} `json:"context"`

	// Config holds the request parameters
	Config map[string]interface{} `json:"config"`

	Error error `json:"-"`

	reporter StatusReporter
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
		reporter:  NopReporter{},
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.Status = OperationStatusCompleted
	p.EndTime = &now
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.Status = OperationStatusFailed
	p.EndTime = &now
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.Status = OperationStatusCancelled
	p.EndTime = &now
}

// GetStatus returns the current operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage sets the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.Steps[stageID]; !exists {
		p.order = append(p.order, stageID)
	}
	p.Steps[stageID] = state
}

// OrderedSteps returns the step states in execution order
func (p *OperationState) OrderedSteps() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	steps := make([]*StepState, 0, len(p.order))
	for _, id := range p.order {
		steps = append(steps, p.Steps[id])
	}
	return steps
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetConfig retrieves a configuration value
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a configuration value
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// SetReporter attaches the reporter that receives step progress
func (p *OperationState) SetReporter(reporter StatusReporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reporter == nil {
		reporter = NopReporter{}
	}
	p.reporter = reporter
}

// ReportProgress updates a step's progress and forwards it to the reporter
func (p *OperationState) ReportProgress(stepID string, progress float64, message string) {
	p.mu.RLock()
	step := p.Steps[stepID]
	reporter := p.reporter
	p.mu.RUnlock()

	if step == nil {
		return
	}
	step.UpdateProgress(progress, message)
	reporter.StepProgress(p.ID, stepID, int(progress), message)
}

// ReportMessage forwards a message for a step without changing its progress
func (p *OperationState) ReportMessage(stepID, message string) {
	p.mu.RLock()
	step := p.Steps[stepID]
	reporter := p.reporter
	p.mu.RUnlock()

	if step == nil {
		return
	}
	progress := step.GetProgress()
	step.UpdateProgress(progress, message)
	reporter.StepProgress(p.ID, stepID, int(progress), message)
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime == nil {
		return time.Since(p.StartTime)
	}
	return p.EndTime.Sub(p.StartTime)
}

// HasFailures checks if any steps have failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the operation state
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		order:     append([]string(nil), p.order...),
		Context:   make(map[string]interface{}, len(p.Context)),
		Config:    make(map[string]interface{}, len(p.Config)),
		Error:     p.Error,
		reporter:  NopReporter{},
	}

	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range p.Steps {
		clone.Steps[k] = v.Clone()
	}
	for k, v := range p.Context {
		clone.Context[k] = v
	}
	for k, v := range p.Config {
		clone.Config[k] = v
	}

	return clone
}
