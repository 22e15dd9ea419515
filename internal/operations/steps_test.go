package operations_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/operations"
)

// TestHelperProcess is not a real test. It stands in for the package manager
// and the preprocessing program when re-executed by the tests below. The first
// argument after "--" selects the behaviour; every invocation is appended to
// the file named by HELPER_RECORD.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	if record := os.Getenv("HELPER_RECORD"); record != "" {
		f, err := os.OpenFile(record, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintln(f, strings.Join(args, " "))
			f.Close()
		}
	}

	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}
	switch mode {
	case "fail":
		fmt.Println("working")
		fmt.Fprintln(os.Stderr, "ERROR: could not find a version that satisfies the requirement")
		os.Exit(3)
	case "sleep":
		time.Sleep(30 * time.Second)
	default:
		fmt.Println("line one")
		fmt.Fprintln(os.Stderr, "line two")
	}
	os.Exit(0)
}

// helperCommand returns a command line that re-executes the test binary as
// the helper process in the given mode.
func helperCommand(t *testing.T, mode string) []string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--", mode}
}

func recordFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.txt")
	t.Setenv("HELPER_RECORD", path)
	return path
}

func recordedCalls(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func setupManager(t *testing.T, installMode, preprocessMode string, packages []string, timeout time.Duration) *operations.Manager {
	t.Helper()
	installCmd := helperCommand(t, installMode)
	install := operations.NewInstallStep(installCmd[0], installCmd[1:], packages, t.TempDir())
	preprocess := operations.NewPreprocessStep(helperCommand(t, preprocessMode), t.TempDir(), operations.StepIDInstall)

	registry, err := operations.NewRegistryWith(install, preprocess)
	require.NoError(t, err)
	return operations.NewManager(nil, registry, operations.NewSetupConfig(timeout))
}

func TestInstallStepCommandLine(t *testing.T) {
	step := operations.NewInstallStep("pip", []string{"install"}, []string{"dash", "pandas"}, ".")
	assert.Equal(t, []string{"pip", "install", "dash", "pandas"}, step.CommandLine())
	assert.Equal(t, operations.StepIDInstall, step.ID())
	assert.Empty(t, step.GetDependencies())
}

func TestStepValidation(t *testing.T) {
	state := operations.NewOperationState("v")

	err := operations.NewInstallStep("", []string{"install"}, []string{"dash"}, ".").Validate(state)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))

	err = operations.NewInstallStep("pip", []string{"install"}, nil, ".").Validate(state)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))

	err = operations.NewPreprocessStep(nil, ".").Validate(state)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))

	assert.NoError(t, operations.NewPreprocessStep([]string{"preprocess"}, ".").Validate(state))
}

func TestSetupPipelineSuccess(t *testing.T) {
	record := recordFile(t)
	packages := []string{"dash", "dash-table", "plotly", "pandas", "numpy"}
	m := setupManager(t, "ok", "ok", packages, 0)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Mode: operations.ModeSetup})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	calls := recordedCalls(t, record)
	require.Len(t, calls, 2)
	assert.Equal(t, "ok dash dash-table plotly pandas numpy", calls[0])
	assert.Equal(t, "ok", calls[1])

	tail := resp.Step(operations.StepIDInstall).Metadata[operations.ContextKeyOutputTail]
	assert.Contains(t, tail, "line one")
	assert.Contains(t, tail, "line two")
}

func TestSetupPipelineInstallFailure(t *testing.T) {
	record := recordFile(t)
	m := setupManager(t, "fail", "ok", []string{"dash"}, 0)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Mode: operations.ModeSetup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, err.Error(), "could not find a version")

	assert.Equal(t, operations.StepStatusFailed, resp.Step(operations.StepIDInstall).Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Step(operations.StepIDPreprocess).Status)
	assert.Len(t, recordedCalls(t, record), 1, "preprocessing must never start")
}

func TestSetupPipelinePreprocessFailure(t *testing.T) {
	record := recordFile(t)
	m := setupManager(t, "ok", "fail", []string{"dash"}, 0)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Mode: operations.ModeSetup})
	require.Error(t, err)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, operations.StepStatusCompleted, resp.Step(operations.StepIDInstall).Status)
	assert.Equal(t, operations.StepStatusFailed, resp.Step(operations.StepIDPreprocess).Status)
	assert.Len(t, recordedCalls(t, record), 2)
}

func TestSetupPipelineMissingProgram(t *testing.T) {
	install := operations.NewInstallStep(filepath.Join(t.TempDir(), "no-such-pip"), []string{"install"}, []string{"dash"}, t.TempDir())
	registry, err := operations.NewRegistryWith(install)
	require.NoError(t, err)
	m := operations.NewManager(nil, registry, operations.NewSetupConfig(0))

	_, err = m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestPreprocessStepTimeout(t *testing.T) {
	preprocess := operations.NewPreprocessStep(helperCommand(t, "sleep"), t.TempDir())
	registry, err := operations.NewRegistryWith(preprocess)
	require.NoError(t, err)
	m := operations.NewManager(nil, registry, operations.NewSetupConfig(200*time.Millisecond))

	start := time.Now()
	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
	assert.Equal(t, operations.StepStatusFailed, resp.Step(operations.StepIDPreprocess).Status)
	assert.Less(t, time.Since(start), 20*time.Second)
}
