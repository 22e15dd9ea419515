package operations

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// StatusReporter receives operation and step lifecycle events.
type StatusReporter interface {
	OperationStarted(operationID string, stepIDs []string)
	StepStarted(operationID, stepID, name string)
	StepProgress(operationID, stepID string, progress int, message string)
	StepCompleted(operationID, stepID, message string)
	StepFailed(operationID, stepID string, err error)
	StepSkipped(operationID, stepID, reason string)
	OperationCompleted(operationID, message string)
	OperationFailed(operationID string, err error)
}

// NopReporter discards all events
type NopReporter struct{}

func (NopReporter) OperationStarted(string, []string)          {}
func (NopReporter) StepStarted(string, string, string)         {}
func (NopReporter) StepProgress(string, string, int, string)   {}
func (NopReporter) StepCompleted(string, string, string)       {}
func (NopReporter) StepFailed(string, string, error)           {}
func (NopReporter) StepSkipped(string, string, string)         {}
func (NopReporter) OperationCompleted(string, string)          {}
func (NopReporter) OperationFailed(string, error)              {}

// MultiReporter fans events out to several reporters
type MultiReporter []StatusReporter

func (m MultiReporter) OperationStarted(operationID string, stepIDs []string) {
	for _, r := range m {
		r.OperationStarted(operationID, stepIDs)
	}
}

func (m MultiReporter) StepStarted(operationID, stepID, name string) {
	for _, r := range m {
		r.StepStarted(operationID, stepID, name)
	}
}

func (m MultiReporter) StepProgress(operationID, stepID string, progress int, message string) {
	for _, r := range m {
		r.StepProgress(operationID, stepID, progress, message)
	}
}

func (m MultiReporter) StepCompleted(operationID, stepID, message string) {
	for _, r := range m {
		r.StepCompleted(operationID, stepID, message)
	}
}

func (m MultiReporter) StepFailed(operationID, stepID string, err error) {
	for _, r := range m {
		r.StepFailed(operationID, stepID, err)
	}
}

func (m MultiReporter) StepSkipped(operationID, stepID, reason string) {
	for _, r := range m {
		r.StepSkipped(operationID, stepID, reason)
	}
}

func (m MultiReporter) OperationCompleted(operationID, message string) {
	for _, r := range m {
		r.OperationCompleted(operationID, message)
	}
}

func (m MultiReporter) OperationFailed(operationID string, err error) {
	for _, r := range m {
		r.OperationFailed(operationID, err)
	}
}
