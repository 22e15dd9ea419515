package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AlexisBnnft/Building-Waste/internal/operations"
)

// consoleReporter prints step events for the operator
type consoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ operations.StatusReporter = (*consoleReporter)(nil)

func newConsoleReporter(out io.Writer) *consoleReporter {
	return &consoleReporter{out: out}
}

func (r *consoleReporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *consoleReporter) OperationStarted(operationID string, stepIDs []string) {
	r.printf("Setup steps: %s\n", strings.Join(stepIDs, " -> "))
}

func (r *consoleReporter) StepStarted(operationID, stepID, name string) {
	r.printf("==> %s\n", name)
}

func (r *consoleReporter) StepProgress(operationID, stepID string, progress int, message string) {
	if message != "" {
		r.printf("    %s\n", message)
	}
}

func (r *consoleReporter) StepCompleted(operationID, stepID, message string) {
	r.printf("    [ok] %s\n", stepID)
}

func (r *consoleReporter) StepFailed(operationID, stepID string, err error) {
	r.printf("    [failed] %s: %v\n", stepID, err)
}

func (r *consoleReporter) StepSkipped(operationID, stepID, reason string) {
	r.printf("    [skipped] %s: %s\n", stepID, reason)
}

func (r *consoleReporter) OperationCompleted(operationID, message string) {}

func (r *consoleReporter) OperationFailed(operationID string, err error) {
	r.printf("Setup failed: %v\n", err)
}
