package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/exporter"
	"github.com/AlexisBnnft/Building-Waste/internal/files"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// ArchiveMirror copies the processed archive to and from remote storage.
// *store.S3Mirror implements it.
type ArchiveMirror interface {
	Upload(ctx context.Context, local *store.LocalStore) error
	Download(ctx context.Context, local *store.LocalStore) error
}

// BuildingOutcome is the result line of one building
type BuildingOutcome struct {
	Name     string        `json:"name"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PreprocessReport summarizes a preprocessing run
type PreprocessReport struct {
	InputDir    string            `json:"input_dir"`
	ArchivePath string            `json:"archive_path,omitempty"`
	Buildings   []BuildingOutcome `json:"buildings"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Mirrored    bool              `json:"mirrored"`
	Duration    time.Duration     `json:"duration"`
}

// PreprocessService analyses every building of the input folder and writes
// the archive.
type PreprocessService struct {
	paths   *config.Paths
	opts    analysis.Options
	workers int
	local   *store.LocalStore
	mirror  ArchiveMirror
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewPreprocessService creates the service. mirror may be nil.
func NewPreprocessService(paths *config.Paths, cfg config.AnalysisConfig, local *store.LocalStore, mirror ArchiveMirror, logger *slog.Logger) *PreprocessService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &PreprocessService{
		paths:   paths,
		opts:    analysis.OptionsFromConfig(cfg),
		workers: cfg.Workers,
		local:   local,
		mirror:  mirror,
		logger:  infrastructure.WithComponent(logger, "preprocess_service"),
	}
}

// SetMetrics records building durations and failures
func (s *PreprocessService) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	s.metrics = metrics
}

// Run processes the buildings. When no building succeeds nothing is
// written and the error wraps domain.ErrNothingProcessed. A mirror failure
// is logged but does not fail the run.
func (s *PreprocessService) Run(ctx context.Context, progress analysis.ProgressFunc) (*PreprocessReport, error) {
	start := time.Now()
	logger := s.logger
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	report := &PreprocessReport{InputDir: s.paths.InputDir}

	buildings, err := files.NewDiscovery(s.paths.InputDir, logger).Discover()
	if err != nil {
		return report, err
	}
	logger.InfoContext(ctx, "Processing buildings",
		slog.Int("count", len(buildings)),
		slog.String("input_dir", s.paths.InputDir))

	batch := analysis.NewBatch(s.opts, s.workers, logger)
	batch.SetMetrics(s.metrics)
	batch.OnProgress(progress)

	results, err := batch.Run(ctx, buildings)
	if err != nil {
		return report, err
	}

	for _, r := range results {
		outcome := BuildingOutcome{Name: r.Name, Duration: r.Duration}
		if r.Err != nil {
			outcome.Error = r.Err.Error()
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Buildings = append(report.Buildings, outcome)
	}

	if report.Succeeded == 0 {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("%w: %d of %d buildings failed", domain.ErrNothingProcessed, report.Failed, len(results))
	}

	// A run cancelled after the last building must not replace the archive.
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := s.local.Save(analysis.Archive(results)); err != nil {
		return report, err
	}
	report.ArchivePath = s.local.ArchivePath()

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, s.local); err != nil {
			logger.WarnContext(ctx, "Failed to mirror processed data", slog.String("error", err.Error()))
		} else {
			report.Mirrored = true
		}
	}

	report.Duration = time.Since(start)
	logger.InfoContext(ctx, "Pre-processing finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("archive", report.ArchivePath),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// CreateSampleStructure splits a single-building input folder into the
// sample buildings.
func (s *PreprocessService) CreateSampleStructure() ([]string, error) {
	return files.NewManager(s.paths.InputDir, s.paths.BackupDir, s.logger).CreateSampleStructure()
}

// WeeklyCSVName is the file ExportWeeklyCSV writes for a building.
func WeeklyCSVName(building string) string {
	return strings.ReplaceAll(building, " ", "_") + "_weekly_bins.csv"
}

// ExportWeeklyCSV writes the weekly bins of every archived building to the
// output folder and returns the written paths.
func (s *PreprocessService) ExportWeeklyCSV() ([]string, error) {
	archive, err := s.local.LoadArchive()
	if err != nil {
		return nil, err
	}

	w := exporter.NewCSVWriter(s.paths, s.logger)
	var written []string
	for _, name := range analysis.Names(archive) {
		path, err := w.WriteFile(WeeklyCSVName(name), archive.Buildings[name].BinnedWeekly)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
