package analysis

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/internal/files"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// BuildingResult is the outcome of one building in a batch
type BuildingResult struct {
	Name     string
	Analysis *domain.BuildingAnalysis
	Err      error
	Duration time.Duration
}

// ProgressFunc is called after each building with the number of buildings
// done so far.
type ProgressFunc func(done, total int, result BuildingResult)

// Batch analyses many buildings concurrently
type Batch struct {
	opts     Options
	workers  int
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	progress ProgressFunc
}

// NewBatch creates a batch runner. workers <= 0 uses the number of CPUs.
func NewBatch(opts Options, workers int, logger *slog.Logger) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{opts: opts, workers: workers, logger: logger}
}

// SetMetrics records per-building durations and failures
func (b *Batch) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	b.metrics = metrics
}

// OnProgress registers a progress callback
func (b *Batch) OnProgress(fn ProgressFunc) {
	b.progress = fn
}

// Run analyses every building and returns the results in name order. A
// failing building does not stop the others; only cancellation of ctx
// aborts the batch.
func (b *Batch) Run(ctx context.Context, buildings []files.Building) ([]BuildingResult, error) {
	sorted := append([]files.Building(nil), buildings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	results := make([]BuildingResult, len(sorted))
	done := make(chan BuildingResult)
	reported := make(chan struct{})

	go func() {
		defer close(reported)
		n := 0
		for r := range done {
			n++
			if b.progress != nil {
				b.progress(n, len(sorted), r)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, building := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.processOne(gctx, building)
			done <- results[i]
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-reported
	return results, err
}

func (b *Batch) processOne(ctx context.Context, building files.Building) BuildingResult {
	start := time.Now()
	logger := b.logger.With(slog.String("building", building.Name))
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	logger.Info("Processing building")

	result := BuildingResult{Name: building.Name}
	if err := building.MissingError(); err != nil {
		result.Err = err
	} else if in, err := dataprocessing.LoadBuilding(building.Dir); err != nil {
		result.Err = err
	} else {
		result.Analysis, result.Err = ProcessBuilding(logger, building.Name, in, b.opts)
	}
	result.Duration = time.Since(start)

	infrastructure.RecordBuildingAnalysis(ctx, b.metrics, building.Name, result.Duration, result.Err)
	if result.Err != nil {
		logger.Error("Failed to process building", slog.String("error", result.Err.Error()))
	} else {
		logger.Info("Successfully processed building", slog.Duration("duration", result.Duration))
	}
	return result
}

// Archive assembles the successful results into the cached artifact.
func Archive(results []BuildingResult) *domain.AnalysisArchive {
	archive := &domain.AnalysisArchive{
		Version:   contracts.DataFormatVersion,
		Buildings: make(map[string]domain.BuildingAnalysis),
	}
	for _, r := range results {
		if r.Err == nil && r.Analysis != nil {
			archive.Buildings[r.Name] = *r.Analysis
		}
	}
	return archive
}

// Names returns the sorted building names of an archive.
func Names(archive *domain.AnalysisArchive) []string {
	names := make([]string, 0, len(archive.Buildings))
	for name := range archive.Buildings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
