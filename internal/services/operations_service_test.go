package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/operations"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

type recordingHub struct {
	mu       sync.Mutex
	statuses []string
}

func (h *recordingHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if eventType == operations.EventTypeOperationSnapshot {
		h.statuses = append(h.statuses, status)
	}
}

func (h *recordingHub) seen(status string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func newOperationService(t *testing.T, hub operations.WebSocketHub, preprocess *PreprocessService) *OperationService {
	t.Helper()
	svc, err := NewOperationService(hub, preprocess, nil, 0, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, svc.Shutdown(ctx))
	})
	return svc
}

func waitForStatus(t *testing.T, svc *OperationService, id string) *operations.OperationSnapshot {
	t.Helper()
	var snap *operations.OperationSnapshot
	require.Eventually(t, func() bool {
		s, err := svc.Status(context.Background(), id)
		if err != nil {
			return false
		}
		snap = s
		_, running := svc.Running()
		return (s.Status == "completed" || s.Status == "failed" || s.Status == "cancelled") && !running
	}, 10*time.Second, 10*time.Millisecond)
	return snap
}

func TestOperationServicePreprocess(t *testing.T) {
	paths := testPaths(t)
	writeInput(t, paths, "Building_A")
	local := store.NewLocalStoreFromPaths(paths)
	hub := &recordingHub{}
	svc := newOperationService(t, hub, NewPreprocessService(paths, analysisConfig(), local, nil, quietLogger()))

	id, err := svc.StartPreprocess(context.Background())
	require.NoError(t, err)
	assert.Contains(t, id, "preprocess-")

	snap := waitForStatus(t, svc, id)
	assert.Equal(t, "completed", snap.Status)
	assert.Equal(t, 100, snap.Progress)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, operations.StepIDPreprocess, snap.Steps[0].ID)

	assert.FileExists(t, paths.ArchiveFile)
	assert.True(t, hub.seen("running"))
	assert.True(t, hub.seen("completed"))
}

func TestOperationServiceReportsFailure(t *testing.T) {
	paths := testPaths(t)
	svc := newOperationService(t, &recordingHub{}, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	id, err := svc.StartPreprocess(context.Background())
	require.NoError(t, err)

	snap := waitForStatus(t, svc, id)
	assert.Equal(t, "failed", snap.Status)
	assert.Contains(t, snap.Error, domain.ErrDataDirNotFound.Error())
}

func TestOperationServiceOneAtATime(t *testing.T) {
	paths := testPaths(t)
	svc := newOperationService(t, nil, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	svc.mu.Lock()
	svc.running = "preprocess-busy"
	svc.mu.Unlock()

	_, err := svc.StartPreprocess(context.Background())
	assert.ErrorIs(t, err, domain.ErrOperationRunning)

	svc.mu.Lock()
	svc.running = ""
	svc.mu.Unlock()
}

func TestOperationServiceCancelBeforeExecute(t *testing.T) {
	paths := testPaths(t)
	writeInput(t, paths, "Building_A")
	hub := &recordingHub{}
	svc := newOperationService(t, hub, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	release := make(chan struct{})
	svc.beforeExecute = func() { <-release }

	ctx := context.Background()
	id, err := svc.StartPreprocess(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, id))
	close(release)

	snap := waitForStatus(t, svc, id)
	assert.Equal(t, "cancelled", snap.Status)
	assert.NoFileExists(t, paths.ArchiveFile)
	assert.True(t, hub.seen("cancelled"))

	assert.ErrorIs(t, svc.Cancel(ctx, id), domain.ErrOperationNotFound)
}

func TestOperationServiceCancelRunning(t *testing.T) {
	paths := testPaths(t)
	for i := 0; i < 40; i++ {
		writeInput(t, paths, fmt.Sprintf("Building_%02d", i))
	}
	cfg := analysisConfig()
	cfg.Workers = 1
	svc := newOperationService(t, nil, NewPreprocessService(paths, cfg, store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	ctx := context.Background()
	for round := 0; round < 3; round++ {
		id, err := svc.StartPreprocess(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(ctx, id), "round %d", round)

		snap := waitForStatus(t, svc, id)
		assert.Equal(t, "cancelled", snap.Status, "round %d", round)
		assert.NotEmpty(t, snap.Error)
		assert.NoFileExists(t, paths.ArchiveFile)
	}
}

func TestOperationServiceCancelOtherID(t *testing.T) {
	paths := testPaths(t)
	svc := newOperationService(t, nil, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	release := make(chan struct{})
	svc.beforeExecute = func() { <-release }
	defer close(release)

	_, err := svc.StartPreprocess(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(context.Background(), "preprocess-other"), domain.ErrOperationNotFound)
	assert.ErrorIs(t, svc.Cancel(context.Background(), ""), ErrOperationIDRequired)
}

func TestOperationServiceStatusErrors(t *testing.T) {
	paths := testPaths(t)
	svc := newOperationService(t, nil, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()))

	_, err := svc.Status(context.Background(), "")
	assert.ErrorIs(t, err, ErrOperationIDRequired)

	_, err = svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)

	assert.ErrorIs(t, svc.Cancel(context.Background(), "missing"), domain.ErrOperationNotFound)
}

func TestOperationServiceRejectsAfterShutdown(t *testing.T) {
	paths := testPaths(t)
	svc, err := NewOperationService(nil, NewPreprocessService(paths, analysisConfig(), store.NewLocalStoreFromPaths(paths), nil, quietLogger()), nil, 0, quietLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Shutdown(context.Background()))

	_, err = svc.StartPreprocess(context.Background())
	assert.ErrorIs(t, err, ErrServiceStopped)
}
