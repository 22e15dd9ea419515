package operations

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
)

// outputTailLines is how many trailing output lines are kept for error reports.
const outputTailLines = 20

// InstallStep installs the manifest packages with one package manager call:
// <manager> <args...> <packages...>
type InstallStep struct {
	BaseStage
	manager  string
	args     []string
	packages []string
	workDir  string
}

// NewInstallStep creates the dependency installation step
func NewInstallStep(manager string, args, packages []string, workDir string) *InstallStep {
	return &InstallStep{
		BaseStage: NewBaseStage(StepIDInstall, StepNameInstall, nil),
		manager:   manager,
		args:      args,
		packages:  packages,
		workDir:   workDir,
	}
}

// CommandLine returns the full package manager invocation
func (s *InstallStep) CommandLine() []string {
	argv := make([]string, 0, 1+len(s.args)+len(s.packages))
	argv = append(argv, s.manager)
	argv = append(argv, s.args...)
	argv = append(argv, s.packages...)
	return argv
}

// Validate requires a package manager and at least one package
func (s *InstallStep) Validate(state *OperationState) error {
	if strings.TrimSpace(s.manager) == "" {
		return NewValidationError(s.ID(), "package manager is not configured")
	}
	if len(s.packages) == 0 {
		return NewValidationError(s.ID(), "no packages to install")
	}
	return nil
}

// Execute runs the package manager and fails on a non-zero exit
func (s *InstallStep) Execute(ctx context.Context, state *OperationState) error {
	state.ReportProgress(s.ID(), 0, fmt.Sprintf("Installing %d packages: %s", len(s.packages), strings.Join(s.packages, ", ")))

	tail, err := runCommand(ctx, state, s.ID(), s.workDir, s.CommandLine())
	state.GetStage(s.ID()).SetMetadata(ContextKeyOutputTail, tail)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	state.SetContext(ContextKeyInstalledPackages, append([]string(nil), s.packages...))
	state.ReportProgress(s.ID(), 100, "Dependencies installed")
	return nil
}

// PreprocessStep runs the preprocessing program with no arguments of its own
type PreprocessStep struct {
	BaseStage
	command []string
	workDir string
}

// NewPreprocessStep creates the preprocessing step. command is the full
// command line of the preprocessing program.
func NewPreprocessStep(command []string, workDir string, dependencies ...string) *PreprocessStep {
	return &PreprocessStep{
		BaseStage: NewBaseStage(StepIDPreprocess, StepNamePreprocess, dependencies),
		command:   command,
		workDir:   workDir,
	}
}

// Command returns the configured command line
func (s *PreprocessStep) Command() []string {
	return append([]string(nil), s.command...)
}

// Validate requires a command to run
func (s *PreprocessStep) Validate(state *OperationState) error {
	if len(s.command) == 0 || strings.TrimSpace(s.command[0]) == "" {
		return NewValidationError(s.ID(), "preprocessing command is not configured")
	}
	return nil
}

// Execute runs the preprocessing program and fails on a non-zero exit
func (s *PreprocessStep) Execute(ctx context.Context, state *OperationState) error {
	state.SetContext(ContextKeyPreprocessCommand, strings.Join(s.command, " "))
	state.ReportProgress(s.ID(), 0, "Running pre-processing")

	tail, err := runCommand(ctx, state, s.ID(), s.workDir, s.command)
	state.GetStage(s.ID()).SetMetadata(ContextKeyOutputTail, tail)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	state.ReportProgress(s.ID(), 100, "Pre-processing finished")
	return nil
}

// runCommand starts argv in dir, streams its combined output line by line to
// the logger and the step progress, and returns the last lines of output.
func runCommand(ctx context.Context, state *OperationState, stepID, dir string, argv []string) (string, error) {
	logger := infrastructure.LoggerWithContext(ctx).With(
		slog.String("step", stepID),
		slog.String("command", argv[0]),
	)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = 5 * time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	tail := newLineTail(outputTailLines)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			logger.Info("output", slog.String("line", line))
			state.ReportMessage(stepID, line)
		}
		// Drain so the writer never blocks on an over-long line.
		_, _ = io.Copy(io.Discard, pr)
	}()

	logger.Info("starting command", slog.Any("args", argv[1:]), slog.String("dir", dir))

	if err := cmd.Start(); err != nil {
		pw.Close()
		wg.Wait()
		return "", fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	waitErr := cmd.Wait()
	pw.Close()
	wg.Wait()

	output := tail.String()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logger.Error("command exited with failure", slog.Int("exit_code", exitErr.ExitCode()))
			return output, fmt.Errorf("%s exited with code %d: %w, output: %s", argv[0], exitErr.ExitCode(), waitErr, output)
		}
		return output, fmt.Errorf("%s failed: %w, output: %s", argv[0], waitErr, output)
	}

	logger.Info("command finished")
	return output, nil
}

// lineTail keeps the last n lines written to it
type lineTail struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{n: n}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
