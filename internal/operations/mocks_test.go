package operations_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/AlexisBnnft/Building-Waste/internal/operations"
)

// mockStage is a configurable Step used across the package tests
type mockStage struct {
	operations.BaseStage
	mu          sync.Mutex
	executeFunc func(ctx context.Context, state *operations.OperationState) error
	validateErr error
	calls       int
}

func newMockStage(id string, deps ...string) *mockStage {
	return &mockStage{BaseStage: operations.NewBaseStage(id, "Stage "+id, deps)}
}

func (m *mockStage) Validate(state *operations.OperationState) error {
	return m.validateErr
}

func (m *mockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.calls++
	fn := m.executeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, state)
	}
	return nil
}

func (m *mockStage) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingReporter records every lifecycle event as a string
type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingReporter) OperationStarted(id string, steps []string) {
	r.add("operation_started:%v", steps)
}
func (r *recordingReporter) StepStarted(id, step, name string)         { r.add("step_started:%s", step) }
func (r *recordingReporter) StepProgress(id, step string, p int, m string) {}
func (r *recordingReporter) StepCompleted(id, step, msg string)         { r.add("step_completed:%s", step) }
func (r *recordingReporter) StepFailed(id, step string, err error)      { r.add("step_failed:%s", step) }
func (r *recordingReporter) StepSkipped(id, step, reason string)        { r.add("step_skipped:%s", step) }
func (r *recordingReporter) OperationCompleted(id, msg string)          { r.add("operation_completed") }
func (r *recordingReporter) OperationFailed(id string, err error)       { r.add("operation_failed") }

// mockHub captures websocket broadcasts
type mockHub struct {
	mu       sync.Mutex
	messages []hubMessage
}

type hubMessage struct {
	eventType string
	step      string
	status    string
	metadata  interface{}
}

func (h *mockHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, hubMessage{eventType, step, status, metadata})
}

func (h *mockHub) Messages() []hubMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hubMessage(nil), h.messages...)
}
