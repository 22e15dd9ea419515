package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/operations"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// ContextKeyReport holds the *PreprocessReport of a finished step
const ContextKeyReport = "preprocess_report"

// snapshotRetention is how long finished operations stay queryable
const snapshotRetention = time.Hour

// preprocessStage runs the PreprocessService inside the operations engine
type preprocessStage struct {
	operations.BaseStage
	service *PreprocessService
}

func newPreprocessStage(service *PreprocessService) *preprocessStage {
	return &preprocessStage{
		BaseStage: operations.NewBaseStage(operations.StepIDPreprocess, operations.StepNamePreprocess, nil),
		service:   service,
	}
}

func (s *preprocessStage) Validate(state *operations.OperationState) error {
	if s.service == nil {
		return operations.NewValidationError(s.ID(), "preprocessing service is not configured")
	}
	return nil
}

func (s *preprocessStage) Execute(ctx context.Context, state *operations.OperationState) error {
	state.ReportProgress(s.ID(), 0, "Discovering buildings")

	report, err := s.service.Run(ctx, func(done, total int, r analysis.BuildingResult) {
		msg := fmt.Sprintf("Processed %s (%d/%d)", r.Name, done, total)
		if r.Err != nil {
			msg = fmt.Sprintf("Failed %s (%d/%d): %v", r.Name, done, total, r.Err)
		}
		state.ReportProgress(s.ID(), float64(done)/float64(total)*100, msg)
	})
	if report != nil {
		state.SetContext(ContextKeyReport, report)
	}
	if err != nil {
		return operations.NewExecutionError(s.ID(), err, false)
	}

	state.ReportProgress(s.ID(), 100, fmt.Sprintf("Processed %d buildings, %d failed", report.Succeeded, report.Failed))
	return nil
}

// OperationService runs preprocessing operations in the background, one at
// a time, and publishes their progress through the status broadcaster.
type OperationService struct {
	manager     *operations.Manager
	broadcaster *operations.StatusBroadcaster
	timeout     time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   string
	runCancel context.CancelFunc
	stopped   bool

	// beforeExecute runs in the operation goroutine ahead of the manager.
	beforeExecute func()
}

// NewOperationService wires the preprocessing step into an operations
// manager reporting to hub. tracer may be nil; timeout 0 means none.
func NewOperationService(hub operations.WebSocketHub, preprocess *PreprocessService, tracer *operations.OperationTracer, timeout time.Duration, logger *slog.Logger) (*OperationService, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "operation_service")

	registry, err := operations.NewRegistryWith(newPreprocessStage(preprocess))
	if err != nil {
		return nil, fmt.Errorf("failed to register steps: %w", err)
	}

	broadcaster := operations.NewStatusBroadcaster(hub, logger)
	manager := operations.NewManager(broadcaster, registry, operations.NewSetupConfig(timeout))
	manager.SetLogger(logger)
	if tracer != nil {
		manager.SetTracer(tracer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &OperationService{
		manager:     manager,
		broadcaster: broadcaster,
		timeout:     timeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// StartPreprocess launches a preprocessing operation and returns its ID. A
// second call while one is running fails with domain.ErrOperationRunning.
func (s *OperationService) StartPreprocess(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", ErrServiceStopped
	}
	if s.running != "" {
		id := s.running
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrOperationRunning, id)
	}
	id := "preprocess-" + uuid.NewString()

	// The operation outlives the request; only its trace ID is carried over.
	// Its cancel function is registered before the ID is handed out.
	opCtx, cancel := context.WithCancel(
		infrastructure.WithTraceID(s.ctx, infrastructure.GetTraceID(infrastructure.EnsureTraceID(ctx))))
	s.running = id
	s.runCancel = cancel
	s.wg.Add(1)
	beforeExecute := s.beforeExecute
	s.mu.Unlock()

	s.broadcaster.UpdateStatus(id, func(snap *operations.OperationSnapshot) {
		snap.Message = "Operation queued"
	})

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = ""
			s.runCancel = nil
			s.mu.Unlock()
			cancel()
		}()

		if beforeExecute != nil {
			beforeExecute()
		}

		runCtx := opCtx
		if s.timeout > 0 {
			var cancelTimeout context.CancelFunc
			runCtx, cancelTimeout = context.WithTimeout(opCtx, s.timeout)
			defer cancelTimeout()
		}

		resp, err := s.manager.Execute(runCtx, operations.OperationRequest{
			ID:   id,
			Mode: operations.ModePreprocess,
		})
		if err != nil {
			s.logger.ErrorContext(opCtx, "Preprocessing operation failed",
				slog.String("operation_id", id),
				slog.String("error", err.Error()))
			return
		}
		s.logger.InfoContext(opCtx, "Preprocessing operation finished",
			slog.String("operation_id", id),
			slog.Duration("duration", resp.Duration))
	}()

	s.logger.InfoContext(ctx, "Preprocessing operation started", slog.String("operation_id", id))
	return id, nil
}

// Status returns the snapshot of an operation
func (s *OperationService) Status(ctx context.Context, id string) (*operations.OperationSnapshot, error) {
	if id == "" {
		return nil, ErrOperationIDRequired
	}
	snapshot, ok := s.broadcaster.GetSnapshot(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOperationNotFound, id)
	}
	return snapshot, nil
}

// Running returns the ID of the running operation, if any
func (s *OperationService) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.running != ""
}

// Cancel stops a running operation. It is effective from the moment
// StartPreprocess returned the ID.
func (s *OperationService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return ErrOperationIDRequired
	}

	s.mu.Lock()
	cancel := s.runCancel
	if s.running != id {
		cancel = nil
	}
	s.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("%w: %s", domain.ErrOperationNotFound, id)
	}
	cancel()
	s.logger.InfoContext(ctx, "Operation cancelled", slog.String("operation_id", id))
	return nil
}

// Cleanup forgets finished operations older than the retention period
func (s *OperationService) Cleanup() int {
	return s.broadcaster.CleanupOldOperations(snapshotRetention)
}

// Shutdown cancels the running operation and waits for it, or for ctx.
func (s *OperationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.broadcaster.Stop()
	return err
}
