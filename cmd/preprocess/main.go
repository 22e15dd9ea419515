// Command preprocess analyses every building of the input folder and writes
// the processed archive the dashboard reads. It needs no arguments; setup
// runs it from the workspace root.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/files"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/services"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	"github.com/AlexisBnnft/Building-Waste/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// options are the command line flags
type options struct {
	inDir      string
	outDir     string
	configFile string
	sample     bool
	csv        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(config.PreprocessProgram, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.inDir, "in", "", "input folder with one sub-folder per building (defaults to the configured input dir)")
	fs.StringVar(&opts.outDir, "out", "", "output folder for the processed archive (defaults to the configured output dir)")
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	fs.BoolVar(&opts.sample, "sample", false, "split a single-building input folder into the sample buildings after processing")
	fs.BoolVar(&opts.csv, "csv", false, "also write the weekly bins of each building as CSV to the output folder")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// resolvePaths applies the -in and -out overrides to the configured paths
func resolvePaths(cfg *config.Config, opts *options) (*config.Paths, error) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}

	if opts.inDir != "" {
		in, err := filepath.Abs(opts.inDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input dir: %w", err)
		}
		paths.InputDir = in
		paths.BackupDir = in + config.BackupDirSuffix
	}
	if opts.outDir != "" {
		out, err := filepath.Abs(opts.outDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output dir: %w", err)
		}
		paths.OutputDir = out
		paths.ArchiveFile = filepath.Join(out, config.ArchiveFileName)
		paths.BuildingsInfoFile = filepath.Join(out, config.BuildingsInfoFileName)
	}
	return paths, nil
}

// run returns the process exit code: 0 when at least one building was
// processed, 1 otherwise.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths, err := resolvePaths(cfg, opts)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		return 1
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	logger = infrastructure.LoggerWithContext(ctx)
	logger.Info("Starting pre-processing",
		slog.String("input_dir", paths.InputDir),
		slog.String("output_dir", paths.OutputDir))

	v := validation.NewFileValidator(logger)
	if err := v.ValidateInputDirectory(paths.InputDir); err != nil {
		return 1
	}
	if err := v.ValidateOutputDirectory(paths.OutputDir); err != nil {
		return 1
	}

	var mirror services.ArchiveMirror
	if cfg.Storage.Enabled {
		s3, err := store.NewS3Mirror(cfg.Storage, logger)
		if err != nil {
			logger.Warn("Archive mirror disabled", slog.String("error", err.Error()))
		} else {
			mirror = s3
		}
	}

	single, _ := files.NewDiscovery(paths.InputDir, logger).IsSingleBuilding()

	svc := services.NewPreprocessService(paths, cfg.Analysis, store.NewLocalStoreFromPaths(paths), mirror, logger)
	report, err := svc.Run(ctx, func(done, total int, result analysis.BuildingResult) {
		status := "ok"
		if result.Err != nil {
			status = "failed: " + result.Err.Error()
		}
		fmt.Fprintf(stdout, "[%d/%d] %s %s\n", done, total, result.Name, status)
	})
	if err != nil {
		logger.Error("Pre-processing failed", slog.String("error", err.Error()))
		return 1
	}

	fmt.Fprintf(stdout, "Processed %d building(s), %d failed. Archive: %s\n",
		report.Succeeded, report.Failed, report.ArchivePath)

	if opts.csv {
		written, err := svc.ExportWeeklyCSV()
		if err != nil {
			logger.Error("Failed to export weekly CSV", slog.String("error", err.Error()))
			return 1
		}
		fmt.Fprintf(stdout, "Wrote %d CSV file(s) to %s\n", len(written), paths.OutputDir)
	}

	if opts.sample {
		if !single {
			logger.Info("Input folder already holds several buildings, sample structure not created")
			return 0
		}
		created, err := svc.CreateSampleStructure()
		if err != nil {
			logger.Error("Failed to create sample structure", slog.String("error", err.Error()))
			return 1
		}
		fmt.Fprintf(stdout, "Created sample buildings: %v\n", created)
	}

	return 0
}
