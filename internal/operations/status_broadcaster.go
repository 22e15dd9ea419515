package operations

import (
	"log/slog"
	"sync"
	"time"
)

// StatusBroadcaster keeps a snapshot per operation and pushes every change
// to the websocket hub. It implements StatusReporter.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// OperationSnapshot represents the complete state of an operation at a point in time
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`       // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"`     // 0-100
	CurrentStep string         `json:"current_step"` // name of the active step
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot represents the state of a single step
type StepSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"` // pending|running|completed|failed|skipped
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *OperationSnapshot) clone() *OperationSnapshot {
	c := *s
	c.Steps = append([]StepSnapshot(nil), s.Steps...)
	return &c
}

func (s *OperationSnapshot) step(id string) *StepSnapshot {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	s.Steps = append(s.Steps, StepSnapshot{ID: id, Name: id, Status: "pending"})
	return &s.Steps[len(s.Steps)-1]
}

func (s *OperationSnapshot) terminal() bool {
	return s.Status == "completed" || s.Status == "failed" || s.Status == "cancelled"
}

type updateRequest struct {
	operationID string
	updateFunc  func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster creates a new status broadcaster
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

// processUpdates applies updates one at a time
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		now := time.Now()
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      "pending",
			StartedAt:   now,
			UpdatedAt:   now,
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()

	if len(snapshot.Steps) > 0 {
		total := 0
		for _, step := range snapshot.Steps {
			total += step.Progress
		}
		snapshot.Progress = total / len(snapshot.Steps)
	}

	if snapshot.terminal() && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	out := snapshot.clone()
	sb.mu.Unlock()

	sb.broadcast(out)
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting operation snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep),
	)

	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, snapshot.Status, snapshot)
}

// UpdateStatus applies updateFunc to the operation snapshot and waits for it.
// Updates after Stop are dropped.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	req := updateRequest{
		operationID: operationID,
		updateFunc:  updateFunc,
		done:        make(chan struct{}),
	}

	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}

	select {
	case <-req.done:
	case <-sb.stop:
	}
}

// OperationStarted initializes the snapshot with the given step IDs
func (sb *StatusBroadcaster) OperationStarted(operationID string, stepIDs []string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "running"
		s.Progress = 0
		s.Steps = make([]StepSnapshot, len(stepIDs))
		for i, id := range stepIDs {
			s.Steps[i] = StepSnapshot{ID: id, Name: id, Status: "pending"}
		}
		s.Message = "Operation started"
	})
}

// StepStarted marks a step as running
func (sb *StatusBroadcaster) StepStarted(operationID, stepID, name string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Name = name
		step.Status = "running"
		step.Error = ""
		s.CurrentStep = name
	})
}

// StepProgress records progress; progress never moves backwards while running
func (sb *StatusBroadcaster) StepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		if progress > 100 {
			progress = 100
		}
		if progress > step.Progress {
			step.Progress = progress
		}
		if message != "" {
			step.Message = message
		}
		if step.Status == "pending" {
			step.Status = "running"
			s.CurrentStep = step.Name
		}
	})
}

// StepCompleted marks a step as completed
func (sb *StatusBroadcaster) StepCompleted(operationID, stepID, message string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "completed"
		step.Progress = 100
		if message != "" {
			step.Message = message
		}
	})
}

// StepFailed marks a step as failed
func (sb *StatusBroadcaster) StepFailed(operationID, stepID string, err error) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "failed"
		if err != nil {
			step.Error = err.Error()
		}
	})
}

// StepSkipped marks a step as skipped
func (sb *StatusBroadcaster) StepSkipped(operationID, stepID, reason string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		step := s.step(stepID)
		step.Status = "skipped"
		step.Message = reason
	})
}

// OperationCompleted marks an operation as completed
func (sb *StatusBroadcaster) OperationCompleted(operationID, message string) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "completed"
		s.CurrentStep = ""
		s.Message = message
	})
}

// OperationFailed marks an operation as failed, or as cancelled when err is
// a cancellation.
func (sb *StatusBroadcaster) OperationFailed(operationID string, err error) {
	sb.UpdateStatus(operationID, func(s *OperationSnapshot) {
		s.Status = "failed"
		s.Message = "Operation failed"
		if err != nil && GetErrorType(err) == ErrorTypeCancellation {
			s.Status = "cancelled"
			s.Message = "Operation cancelled"
		}
		s.CurrentStep = ""
		if err != nil {
			s.Error = err.Error()
		}
	})
}

// GetSnapshot returns a copy of the current snapshot for an operation
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return snapshot.clone(), true
}

// CleanupOldOperations removes finished operations older than maxAge
func (sb *StatusBroadcaster) CleanupOldOperations(maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, snapshot := range sb.operations {
		if snapshot.terminal() && snapshot.CompletedAt != nil && now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			removed++
		}
	}
	return removed
}

// Stop shuts down the update processor
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
}
