package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/charts"
	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/internal/exporter"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// CustomBuildingName names the analysis of an uploaded file set
const CustomBuildingName = "Custom Upload"

// ArchiveStatus describes the processed archive the service serves from
type ArchiveStatus struct {
	Loaded    bool      `json:"loaded"`
	Buildings int       `json:"buildings"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// AnalysisService serves building analyses from the processed archive. The
// archive is loaded on first use and reloaded when the file changes; every
// reload clears the response cache.
type AnalysisService struct {
	local       *store.LocalStore
	mirror      ArchiveMirror
	cache       store.Cache
	opts        analysis.Options
	defaultFreq analysis.Frequency
	logger      *slog.Logger

	mu      sync.RWMutex
	archive *domain.AnalysisArchive
	stamp   time.Time
}

// NewAnalysisService creates the service. mirror and cache may be nil.
func NewAnalysisService(local *store.LocalStore, mirror ArchiveMirror, cache store.Cache, cfg config.AnalysisConfig, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cache == nil {
		cache = store.NoopCache{}
	}
	freq, err := analysis.ParseFrequency(cfg.DefaultFrequency)
	if err != nil {
		freq = analysis.Weekly
	}
	return &AnalysisService{
		local:       local,
		mirror:      mirror,
		cache:       cache,
		opts:        analysis.OptionsFromConfig(cfg),
		defaultFreq: freq,
		logger:      infrastructure.WithComponent(logger, "analysis_service"),
	}
}

// load returns the current archive, reading it again when the file on disk
// has changed since the last load.
func (s *AnalysisService) load(ctx context.Context) (*domain.AnalysisArchive, error) {
	stamp, err := s.local.Stamp()
	if errors.Is(err, domain.ErrArchiveNotFound) && s.mirror != nil {
		if derr := s.mirror.Download(ctx, s.local); derr != nil {
			s.logger.WarnContext(ctx, "No processed data in remote storage", slog.String("error", derr.Error()))
		} else {
			s.logger.InfoContext(ctx, "Fetched processed data from remote storage")
			stamp, err = s.local.Stamp()
		}
	}
	if err != nil {
		s.mu.Lock()
		s.archive = nil
		s.mu.Unlock()
		return nil, err
	}

	s.mu.RLock()
	if s.archive != nil && s.stamp.Equal(stamp) {
		archive := s.archive
		s.mu.RUnlock()
		return archive, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archive != nil && s.stamp.Equal(stamp) {
		return s.archive, nil
	}

	archive, err := s.local.LoadArchive()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear analysis cache", slog.String("error", err.Error()))
	}
	s.archive = archive
	s.stamp = stamp

	s.logger.InfoContext(ctx, "Loaded processed data",
		slog.Int("buildings", len(archive.Buildings)),
		slog.Time("modified", stamp))
	return archive, nil
}

// Status reports whether processed data is available
func (s *AnalysisService) Status(ctx context.Context) (ArchiveStatus, error) {
	archive, err := s.load(ctx)
	if errors.Is(err, domain.ErrArchiveNotFound) {
		return ArchiveStatus{}, nil
	}
	if err != nil {
		return ArchiveStatus{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return ArchiveStatus{Loaded: true, Buildings: len(archive.Buildings), UpdatedAt: s.stamp}, nil
}

// Buildings returns the building names in order
func (s *AnalysisService) Buildings(ctx context.Context) ([]string, error) {
	archive, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.Names(archive), nil
}

func (s *AnalysisService) building(ctx context.Context, name string) (*domain.BuildingAnalysis, error) {
	archive, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := archive.Buildings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBuildingNotFound, name)
	}
	return &a, nil
}

// frequency parses freq, falling back to the configured default
func (s *AnalysisService) frequency(freq string) (analysis.Frequency, error) {
	if freq == "" {
		return s.defaultFreq, nil
	}
	return analysis.ParseFrequency(freq)
}

// Analysis returns the view of a building at the requested frequency.
func (s *AnalysisService) Analysis(ctx context.Context, name, freq string) (*domain.AnalysisView, error) {
	f, err := s.frequency(freq)
	if err != nil {
		return nil, err
	}
	a, err := s.building(ctx, name)
	if err != nil {
		return nil, err
	}

	key := store.CacheKey("analysis", name, string(f))
	if data, ok := s.cacheGet(ctx, key); ok {
		var view domain.AnalysisView
		if err := json.Unmarshal(data, &view); err == nil {
			return &view, nil
		}
		s.logger.WarnContext(ctx, "Discarding unreadable cache entry", slog.String("key", key))
	}

	view, err := analysis.View(a, f)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(view); err == nil {
		s.cacheSet(ctx, key, data)
	}
	return view, nil
}

// ZoneDetail returns the series of one zone
func (s *AnalysisService) ZoneDetail(ctx context.Context, name, zone string) (*domain.ZoneDetail, error) {
	a, err := s.building(ctx, name)
	if err != nil {
		return nil, err
	}
	return analysis.ZoneDetail(a, zone)
}

// Chart renders a chart of a building as PNG
func (s *AnalysisService) Chart(ctx context.Context, name, kind, freq string, normalize bool) ([]byte, error) {
	k, err := charts.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	view, err := s.Analysis(ctx, name, freq)
	if err != nil {
		return nil, err
	}

	key := store.CacheKey("chart", name, string(k), view.Frequency, strconv.FormatBool(normalize))
	if data, ok := s.cacheGet(ctx, key); ok {
		return data, nil
	}

	opts := charts.DefaultOptions()
	opts.Normalize = normalize

	var buf bytes.Buffer
	if err := charts.Render(&buf, view, k, opts); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, buf.Bytes())
	return buf.Bytes(), nil
}

// ExportXLSX builds the workbook of a building
func (s *AnalysisService) ExportXLSX(ctx context.Context, name, freq string) ([]byte, error) {
	a, err := s.building(ctx, name)
	if err != nil {
		return nil, err
	}
	view, err := s.Analysis(ctx, name, freq)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := exporter.WriteWorkbook(&buf, a, view); err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCSV writes the binned and regrouped series of a building as CSV
func (s *AnalysisService) ExportCSV(ctx context.Context, name, freq string) ([]byte, error) {
	view, err := s.Analysis(ctx, name, freq)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := exporter.WriteViewCSV(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// CustomAnalysis analyses an uploaded file set. readers are keyed by input
// key. Uploaded zones are not filtered by median temperature.
func (s *AnalysisService) CustomAnalysis(ctx context.Context, readers map[string]io.Reader, freq string) (*domain.AnalysisView, error) {
	f, err := s.frequency(freq)
	if err != nil {
		return nil, err
	}

	in, err := dataprocessing.ReadBuilding(readers)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	opts.FilterZones = false

	logger := infrastructure.LoggerWithContext(ctx)
	a, err := analysis.ProcessBuilding(logger, CustomBuildingName, in, opts)
	if err != nil {
		return nil, err
	}
	return analysis.View(a, f)
}

func (s *AnalysisService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return data, ok
}

func (s *AnalysisService) cacheSet(ctx context.Context, key string, data []byte) {
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
