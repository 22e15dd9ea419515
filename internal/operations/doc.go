// Package operations runs ordered, dependency-aware steps and reports their
// progress. The setup pipeline (dependency installation followed by data
// pre-processing) and the dashboard's background pre-processing both run on it.
//
// Core pieces:
//
//   - Step: one unit of work with an ID, dependencies, validation and execution.
//   - Registry: registered steps and their dependency order.
//   - Manager: executes steps sequentially with per-step timeouts and retries.
//     The first failure halts the operation and skips the remaining steps.
//   - OperationState / StepState: runtime status, progress and errors.
//   - StatusReporter: receives lifecycle events. StatusBroadcaster keeps
//     snapshots and forwards them to a websocket hub.
//
// Example:
//
//	registry, _ := operations.NewRegistryWith(
//		operations.NewInstallStep("pip", []string{"install"}, packages, root),
//		operations.NewPreprocessStep(command, root, operations.StepIDInstall),
//	)
//	manager := operations.NewManager(reporter, registry, operations.NewSetupConfig(0))
//	resp, err := manager.Execute(ctx, operations.OperationRequest{Mode: operations.ModeSetup})
package operations
