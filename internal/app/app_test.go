package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
)

// createTestLogger creates a logger that discards output for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Server.Port = 0
	cfg.Telemetry.TraceExporter = "none"
	return cfg
}

// newTestApplication builds an application that is stopped on cleanup
func newTestApplication(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	app, err := New(cfg, createTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, app.Stop(ctx))
	})
	return app
}

func serve(t *testing.T, app *Application, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, createTestLogger())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApplication(t, cfg)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.OperationService)
	assert.Equal(t, filepath.Join(cfg.Paths.WorkDir, config.DefaultOutputDir, config.ArchiveFileName), app.Paths.ArchiveFile)
	assert.Equal(t, "127.0.0.1:0", app.Server.Addr)
	assert.Equal(t, cfg.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)
}

func TestApplication_setupRouter(t *testing.T) {
	app := newTestApplication(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"live", http.MethodGet, "/api/health/live", http.StatusOK},
		{"ready without data", http.MethodGet, "/api/health/ready", http.StatusServiceUnavailable},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
		{"buildings without data", http.MethodGet, "/api/buildings", http.StatusNotFound},
		{"websocket stats", http.MethodGet, "/api/metrics/websocket", http.StatusOK},
		{"unknown operation", http.MethodGet, "/api/operations/missing", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nowhere", http.StatusNotFound},
		{"websocket without upgrade", http.MethodGet, "/ws", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, app, tt.method, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	t.Run("security headers", func(t *testing.T) {
		rec := serve(t, app, http.MethodGet, "/api/health")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("metrics exposition", func(t *testing.T) {
		rec := serve(t, app, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "websocket_clients")
		assert.Contains(t, body, "http_requests_total")
	})
}

func TestApplication_getCORSConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.AllowedOrigins = []string{"http://localhost:3000"}
	app := newTestApplication(t, cfg)

	corsConfig := app.getCORSConfig()
	assert.Equal(t, []string{"http://localhost:3000"}, corsConfig.AllowedOrigins)
	assert.Contains(t, corsConfig.ExposedHeaders, "Content-Disposition")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreprocessThroughAPI(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApplication(t, cfg)
	testutil.WriteBuilding(t, filepath.Join(app.Paths.InputDir, "Building_A"))

	rec := serve(t, app, http.MethodPost, "/api/operations/preprocess")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	statusURL := decode(t, rec)["status_url"].(string)

	require.Eventually(t, func() bool {
		rec := serve(t, app, http.MethodGet, statusURL)
		if rec.Code != http.StatusOK {
			return false
		}
		status := decode(t, rec)["status"]
		_, running := app.OperationService.Running()
		return (status == "completed" || status == "failed") && !running
	}, 10*time.Second, 20*time.Millisecond)

	assert.Equal(t, "completed", decode(t, serve(t, app, http.MethodGet, statusURL))["status"])

	rec = serve(t, app, http.MethodGet, "/api/buildings")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{"Building_A"}, decode(t, rec)["buildings"])

	assert.Equal(t, http.StatusOK, serve(t, app, http.MethodGet, "/api/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(t, app, http.MethodGet, "/api/buildings/Building_A/analysis?freq=D").Code)
}

func TestApplication_StartStop(t *testing.T) {
	app, err := New(testConfig(t), createTestLogger())
	require.NoError(t, err)

	serveErr, err := app.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(app.Addr(), ":0"))

	resp, err := http.Get(app.URL() + "/api/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))

	_, open := <-serveErr
	assert.False(t, open)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	app, err := New(testConfig(t), createTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
