package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/dependencies"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/operations"
)

// DoneMessage is printed once, after pre-processing succeeded
const DoneMessage = "Done! Pre-processed data is ready."

// buildRegistry assembles install -> preprocess. With SkipInstall the
// preprocess step has no dependency.
func buildRegistry(cfg *config.Config, paths *config.Paths) (*operations.Registry, error) {
	command := cfg.Setup.PreprocessCommand
	if len(command) == 0 {
		var err error
		command, err = config.DefaultPreprocessCommand()
		if err != nil {
			return nil, fmt.Errorf("failed to locate the preprocess program: %w", err)
		}
	}

	if cfg.Setup.SkipInstall {
		return operations.NewRegistryWith(operations.NewPreprocessStep(command, paths.WorkDir))
	}

	manifest, err := dependencies.Load(cfg.Setup.Manifest)
	if err != nil {
		return nil, err
	}
	packages, err := manifest.Resolve(cfg.Setup.Variant)
	if err != nil {
		return nil, err
	}

	return operations.NewRegistryWith(
		operations.NewInstallStep(cfg.Setup.PackageManager, cfg.Setup.InstallArgs, packages, paths.WorkDir),
		operations.NewPreprocessStep(command, paths.WorkDir, operations.StepIDInstall),
	)
}

// dashboardURL is where the dashboard listens with the given config
func dashboardURL(cfg config.ServerConfig) string {
	return "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// runSetup runs the pipeline and prints the final message on success. Any
// step failure is returned after the failing step has been logged.
func runSetup(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, paths)
	if err != nil {
		logger.Error("Setup is misconfigured", slog.String("error", err.Error()))
		return err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return err
	}
	defer providers.Shutdown(context.WithoutCancel(ctx))

	manager := operations.NewManager(newConsoleReporter(out), registry, operations.NewSetupConfig(cfg.Setup.StepTimeout))
	manager.SetLogger(logger)
	if tracer, err := operations.NewOperationTracer(providers); err == nil {
		manager.SetTracer(tracer)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	logger.InfoContext(ctx, "Starting setup",
		slog.String("variant", cfg.Setup.Variant),
		slog.Bool("skip_install", cfg.Setup.SkipInstall),
		slog.String("work_dir", paths.WorkDir))

	resp, err := manager.Execute(ctx, operations.OperationRequest{Mode: operations.ModeSetup})
	if err != nil {
		step := ""
		if resp != nil {
			for _, s := range resp.Steps {
				if s.Status == operations.StepStatusFailed {
					step = s.ID
					break
				}
			}
		}
		logger.ErrorContext(ctx, "Setup failed",
			slog.String("step", step),
			slog.String("error", err.Error()))
		return err
	}

	fmt.Fprintln(out, DoneMessage)
	fmt.Fprintf(out, "Start the dashboard with '%s' and open %s\n", config.DashboardProgram, dashboardURL(cfg.Server))
	return nil
}
