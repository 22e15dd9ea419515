package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPaths lays out a workspace under a temp dir without creating the input folder.
func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, config.DefaultInputDir)
	output := filepath.Join(root, config.DefaultOutputDir)
	return &config.Paths{
		WorkDir:           root,
		InputDir:          input,
		BackupDir:         input + config.BackupDirSuffix,
		OutputDir:         output,
		LogsDir:           filepath.Join(root, "logs"),
		ArchiveFile:       filepath.Join(output, config.ArchiveFileName),
		BuildingsInfoFile: filepath.Join(output, config.BuildingsInfoFileName),
	}
}

func writeInput(t *testing.T, paths *config.Paths, good ...string) {
	t.Helper()
	for _, name := range good {
		testutil.WriteBuilding(t, filepath.Join(paths.InputDir, name))
	}
}

func analysisConfig() config.AnalysisConfig {
	return config.Default().Analysis
}

// fakeMirror records uploads and serves downloads from a saved archive.
type fakeMirror struct {
	mu        sync.Mutex
	uploads   int
	uploadErr error
	remote    *domain.AnalysisArchive
}

func (m *fakeMirror) Upload(ctx context.Context, local *store.LocalStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads++
	return nil
}

func (m *fakeMirror) Download(ctx context.Context, local *store.LocalStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remote == nil {
		return domain.ErrArchiveNotFound
	}
	return local.Save(m.remote)
}

func TestPreprocessServiceWritesArchive(t *testing.T) {
	paths := testPaths(t)
	writeInput(t, paths, "Building_A", "Building_B")
	require.NoError(t, os.Mkdir(filepath.Join(paths.InputDir, "Building_C"), 0755))

	local := store.NewLocalStoreFromPaths(paths)
	mirror := &fakeMirror{}
	svc := NewPreprocessService(paths, analysisConfig(), local, mirror, quietLogger())

	var progress []int
	report, err := svc.Run(context.Background(), func(done, total int, _ analysis.BuildingResult) {
		progress = append(progress, done)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Buildings, 3)
	assert.Equal(t, "Building_C", report.Buildings[2].Name)
	assert.NotEmpty(t, report.Buildings[2].Error)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.True(t, report.Mirrored)
	assert.Equal(t, 1, mirror.uploads)

	archive, err := local.LoadArchive()
	require.NoError(t, err)
	assert.Len(t, archive.Buildings, 2)

	info, err := local.LoadInfo()
	require.NoError(t, err)
	assert.Equal(t, []string{"Building_A", "Building_B"}, info.Names)
}

func TestPreprocessServiceIsIdempotent(t *testing.T) {
	paths := testPaths(t)
	writeInput(t, paths, "Building_A")
	local := store.NewLocalStoreFromPaths(paths)
	svc := NewPreprocessService(paths, analysisConfig(), local, nil, quietLogger())

	_, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	first, err := os.ReadFile(paths.ArchiveFile)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), nil)
	require.NoError(t, err)
	second, err := os.ReadFile(paths.ArchiveFile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPreprocessServiceNothingProcessed(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Join(paths.InputDir, "Building_A"), 0755))

	local := store.NewLocalStoreFromPaths(paths)
	mirror := &fakeMirror{}
	svc := NewPreprocessService(paths, analysisConfig(), local, mirror, quietLogger())

	report, err := svc.Run(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrNothingProcessed)
	assert.Equal(t, 1, report.Failed)

	_, statErr := os.Stat(paths.ArchiveFile)
	assert.True(t, os.IsNotExist(statErr), "archive must not be written")
	assert.Zero(t, mirror.uploads)
}

func TestPreprocessServiceMissingInput(t *testing.T) {
	paths := testPaths(t)
	svc := NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger())

	_, err := svc.Run(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrDataDirNotFound)
}

func TestPreprocessServiceMirrorFailureIsNotFatal(t *testing.T) {
	paths := testPaths(t)
	writeInput(t, paths, "Building_A")
	mirror := &fakeMirror{uploadErr: errors.New("bucket unreachable")}
	svc := NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), mirror, quietLogger())

	report, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, report.Mirrored)
	assert.FileExists(t, paths.ArchiveFile)
}

func TestCreateSampleStructure(t *testing.T) {
	paths := testPaths(t)
	testutil.WriteBuilding(t, paths.InputDir)
	svc := NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger())

	created, err := svc.CreateSampleStructure()
	require.NoError(t, err)
	assert.Len(t, created, 6)
	assert.DirExists(t, paths.BackupDir)

	report, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Succeeded)
}
