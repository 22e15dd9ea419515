package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	reporter StatusReporter
	tracer   *OperationTracer
	logger   *slog.Logger

	// Running operations
	mu         sync.RWMutex
	operations map[string]*runningOperation
}

type runningOperation struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a new operation manager
func NewManager(reporter StatusReporter, registry *Registry, config *Config) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Manager{
		registry:   registry,
		config:     config,
		reporter:   reporter,
		logger:     infrastructure.WithComponent(infrastructure.GetLogger(), "operations"),
		operations: make(map[string]*runningOperation),
	}
}

// RegisterStage registers a Step with the operation
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// SetTracer enables spans and metrics for executions
func (m *Manager) SetTracer(tracer *OperationTracer) {
	m.tracer = tracer
}

// SetLogger replaces the manager logger
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs every registered step in dependency order. The response is
// returned even when the operation fails; the error is the failing step's.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID)
	state.SetReporter(m.reporter)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	logger := m.logger.With(
		slog.String("operation_id", req.ID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)),
	)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		opErr := NewFatalError("invalid step graph", err)
		logger.ErrorContext(ctx, "operation rejected", slog.String("error", opErr.Error()))
		state.Fail(opErr)
		m.reporter.OperationFailed(req.ID, opErr)
		return m.createResponse(state), opErr
	}

	stepIDs := make([]string, len(steps))
	for i, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
		stepIDs[i] = step.ID()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := m.storeOperation(state, cancel); err != nil {
		return nil, err
	}
	defer m.removeOperation(req.ID)

	ctx, span := m.tracer.TraceOperationExecution(ctx, req)
	defer span.End()

	logger.InfoContext(ctx, "operation started",
		slog.String("mode", req.Mode),
		slog.Any("steps", stepIDs))

	m.reporter.OperationStarted(req.ID, stepIDs)
	state.Start()

	err = m.executeSequential(ctx, state, steps, logger)

	switch {
	case err == nil:
		state.Complete()
		m.reporter.OperationCompleted(req.ID, "Operation completed successfully")
		logger.InfoContext(ctx, "operation completed", slog.Duration("duration", state.Duration()))
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
		m.reporter.OperationFailed(req.ID, err)
		logger.WarnContext(ctx, "operation cancelled", slog.String("error", err.Error()))
	default:
		state.Fail(err)
		m.reporter.OperationFailed(req.ID, err)
		logger.ErrorContext(ctx, "operation failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", state.Duration()))
	}

	m.tracer.RecordOperationCompletion(ctx, span, req, state.Duration(), err)

	return m.createResponse(state), err
}

// executeSequential executes steps one by one and stops at the first failure
// unless ContinueOnError is set.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step, logger *slog.Logger) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID())
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			continue
		}

		logger.InfoContext(ctx, "executing step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStage(ctx, state, step, logger); err != nil {
			if m.config.ContinueOnError && GetErrorType(err) != ErrorTypeCancellation {
				m.skipDependentStages(state, steps, step.ID())
				logger.WarnContext(ctx, "step failed, continuing",
					slog.String("step", step.ID()),
					slog.String("error", err.Error()))
				continue
			}
			m.skipDependentStages(state, steps, step.ID())
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("operation halted after %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStage executes a single Step with timeout and retry handling
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, logger *slog.Logger) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError("Step state not found", nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		m.reporter.StepSkipped(state.ID, step.ID(), err.Error())
		return err
	}

	if err := step.Validate(state); err != nil {
		vErr := NewValidationError(step.ID(), err.Error())
		if GetErrorType(err) == ErrorTypeValidation {
			vErr = WrapError(err, step.ID(), "")
		}
		stepState.Fail(vErr)
		m.reporter.StepFailed(state.ID, step.ID(), vErr)
		return vErr
	}

	ctx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	defer span.End()

	timeout := m.config.GetStageTimeout(step.ID())
	retryConfig := m.config.RetryConfig
	maxAttempts := retryConfig.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	stepState.Start()
	m.reporter.StepStarted(state.ID, step.ID(), step.Name())
	start := time.Now()

	var err error
	attempt := 0
retry:
	for attempt < maxAttempts {
		attempt++
		stepState.SetAttempts(attempt)
		err = m.runAttempt(ctx, state, step, timeout)
		if err == nil || !IsRetryable(err) || attempt >= maxAttempts {
			break
		}

		delay := m.calculateRetryDelay(attempt, retryConfig)
		logger.WarnContext(ctx, "step retry",
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = NewCancellationError(step.ID())
			break retry
		}
	}

	duration := time.Since(start)
	m.tracer.RecordStageCompletion(ctx, span, step.ID(), duration, attempt, err)

	if err != nil {
		wrapped := WrapError(err, step.ID(), "")
		stepState.Fail(wrapped)
		m.reporter.StepFailed(state.ID, step.ID(), wrapped)
		logger.ErrorContext(ctx, "step failed",
			slog.String("step", step.ID()),
			slog.Int("attempts", attempt),
			slog.Duration("duration", duration),
			slog.String("error", wrapped.Error()))
		return wrapped
	}

	stepState.Complete()
	m.reporter.StepCompleted(state.ID, step.ID(), fmt.Sprintf("%s completed", step.Name()))
	logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// runAttempt executes the step once under its own timeout, translating
// context errors into timeout or cancellation errors.
func (m *Manager) runAttempt(ctx context.Context, state *OperationState, step Step, timeout time.Duration) error {
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := step.Execute(stepCtx, state)
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		cErr := NewCancellationError(step.ID())
		cErr.Cause = err
		return cErr
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		tErr := NewTimeoutError(step.ID(), timeout.String())
		tErr.Cause = err
		return tErr
	}
	return err
}

// skipDependentStages marks all pending steps that depend, directly or not,
// on the failed Step as skipped
func (m *Manager) skipDependentStages(state *OperationState, steps []Step, failedStageID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedStageID {
				continue
			}
			stepState := state.GetStage(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				reason := fmt.Sprintf("dependency %s failed", failedStageID)
				stepState.Skip(reason)
				m.reporter.StepSkipped(state.ID, step.ID(), reason)
				m.skipDependentStages(state, steps, step.ID())
			}
			break
		}
	}
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(reason)
			m.reporter.StepSkipped(state.ID, step.ID(), reason)
		}
	}
}

// checkDependencies verifies that all dependencies are satisfied
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not found", dep))
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

// calculateRetryDelay returns InitialDelay * Multiplier^(attempt-1), capped at MaxDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()
	resp := &OperationResponse{
		ID:       snapshot.ID,
		Status:   snapshot.Status,
		Duration: state.Duration(),
		Steps:    snapshot.OrderedSteps(),
	}
	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}
	return resp
}

// GetOperation retrieves the state of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrOperationNotFound, id)
	}
	return op.state.Clone(), nil
}

// ListOperations returns all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, op := range m.operations {
		operations = append(operations, op.state.Clone())
	}
	return operations
}

// CancelOperation cancels a running operation
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrOperationNotFound, id)
	}
	op.cancel()
	return nil
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.operations[state.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrOperationRunning, state.ID)
	}
	m.operations[state.ID] = &runningOperation{state: state, cancel: cancel}
	return nil
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
