package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	apierrors "github.com/AlexisBnnft/Building-Waste/internal/errors"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	customMiddleware "github.com/AlexisBnnft/Building-Waste/internal/middleware"
	"github.com/AlexisBnnft/Building-Waste/internal/operations"
	"github.com/AlexisBnnft/Building-Waste/internal/services"
	"github.com/AlexisBnnft/Building-Waste/internal/store"
	handlers "github.com/AlexisBnnft/Building-Waste/internal/transport/http"
	ws "github.com/AlexisBnnft/Building-Waste/internal/websocket"
)

// CleanupInterval is how often finished operation snapshots are pruned
const CleanupInterval = 10 * time.Minute

// Application represents the main application container
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	OTelProviders *infrastructure.OTelProviders
	HTTPMetrics   *customMiddleware.HTTPMetrics
	WebSocketHub  *ws.Hub
	Cache         store.Cache
	Local         *store.LocalStore

	PreprocessService *services.PreprocessService
	AnalysisService   *services.AnalysisService
	OperationService  *services.OperationService
	HealthService     *services.HealthService

	errorHandler *apierrors.ErrorHandler
	listener     net.Listener
	stopCleanup  context.CancelFunc
}

// NewApplication loads the configuration from the environment and builds
// the application around it.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
	}

	if err := app.initializeServices(); err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	logger.Info("Application initialized",
		slog.String("version", config.AppVersion),
		slog.String("address", app.Server.Addr),
		slog.String("work_dir", paths.WorkDir))

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	ctx := context.Background()

	a.errorHandler = apierrors.NewErrorHandler(a.Logger, false)

	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create operation tracer: %w", err)
	}

	a.Cache = store.NewCache(ctx, a.Config.Cache, a.Logger)
	a.Local = store.NewLocalStoreFromPaths(a.Paths)

	// Left as a nil interface when storage is off.
	var mirror services.ArchiveMirror
	if a.Config.Storage.Enabled {
		s3, err := store.NewS3Mirror(a.Config.Storage, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create archive mirror: %w", err)
		}
		mirror = s3
	}

	a.PreprocessService = services.NewPreprocessService(a.Paths, a.Config.Analysis, a.Local, mirror, a.Logger)
	a.PreprocessService.SetMetrics(tracer.Metrics())
	a.AnalysisService = services.NewAnalysisService(a.Local, mirror, a.Cache, a.Config.Analysis, a.Logger)

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.WebSocketHub.Start()

	a.OperationService, err = services.NewOperationService(a.WebSocketHub, a.PreprocessService, tracer, a.Config.Server.OperationTimeout, a.Logger)
	if err != nil {
		a.WebSocketHub.Stop()
		return fmt.Errorf("failed to create operation service: %w", err)
	}

	a.HealthService = services.NewHealthService(config.AppVersion, a.Paths, a.AnalysisService, a.OperationService, a.WebSocketHub, a.Logger)

	a.HTTPMetrics = customMiddleware.NewHTTPMetrics()
	registry := a.OTelProviders.Registry
	for _, c := range append(a.HTTPMetrics.Collectors(), a.WebSocketHub.Collectors()...) {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return nil
}

// setupRouter configures the HTTP router with all routes and middleware
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// The websocket upgrade bypasses the response-wrapping middleware.
	upgrader := ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(a.WebSocketHub, upgrader, w, r)
	})

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.WebSocketHub)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.HTTPMetrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			a.setupAPIRoutes(r, metricsHandler)
		})

		r.Handle("/metrics", metricsHandler)
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures all API routes
func (a *Application) setupAPIRoutes(r chi.Router, metricsHandler *handlers.MetricsHandler) {
	r.Use(render.SetContentType(render.ContentTypeJSON))

	handlers.NewHealthHandler(a.HealthService).RegisterRoutes(r)

	r.Mount("/metrics", metricsHandler.Routes())

	operationsHandler := handlers.NewOperationsHandler(a.OperationService, a.errorHandler, a.Logger)
	r.Mount("/operations", operationsHandler.Routes())

	// Analysis routes build charts and workbooks, so they get the request
	// deadline; background operations do not.
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.errorHandler, a.Logger)
		analysisHandler.SetMaxUploadBytes(a.Config.Server.MaxUploadBytes)
		analysisHandler.RegisterRoutes(r)
	})
}

// getCORSConfig returns CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	srv := a.Config.Server
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port)),
		Handler:        a.Router,
		ReadTimeout:    srv.ReadTimeout,
		WriteTimeout:   srv.WriteTimeout,
		IdleTimeout:    srv.IdleTimeout,
		MaxHeaderBytes: srv.MaxHeaderBytes,
	}
}

// Addr returns the address the server listens on. After Start it carries
// the actual port, which matters when the configured port is 0.
func (a *Application) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// URL returns the dashboard base URL
func (a *Application) URL() string {
	return "http://" + a.Addr()
}

// Start binds the listener and serves in the background. The returned
// channel receives the serve error, if any, and is closed when serving ends.
func (a *Application) Start(ctx context.Context) (<-chan error, error) {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	cleanupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopCleanup = cancel
	go a.cleanupLoop(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		a.Logger.Info("Dashboard listening", slog.String("url", a.URL()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// cleanupLoop prunes finished operations until ctx is done
func (a *Application) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.OperationService.Cleanup(); n > 0 {
				a.Logger.Debug("Pruned finished operations", slog.Int("count", n))
			}
		}
	}
}

// Stop gracefully shuts down the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.Info("Shutting down application")

	if a.stopCleanup != nil {
		a.stopCleanup()
	}

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.OperationService.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("operations shutdown: %w", err))
	}
	a.WebSocketHub.Stop()
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		a.Logger.Error("Shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}

	a.Logger.Info("Application stopped gracefully")
	return nil
}

// Run starts the server and blocks until ctx is cancelled, SIGINT or
// SIGTERM arrives, or the server fails. It then shuts everything down
// within the configured shutdown timeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr, err := a.Start(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}
