package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
)

// logState is the process-wide logger and the file it may write to.
var logState struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Only the first call has an effect. Console output goes to
// stderr; stdout is reserved for messages meant for the operator.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	logState.once.Do(func() {
		var w io.Writer
		if w, err = logWriter(cfg); err != nil {
			return
		}
		logState.logger = NewLogger(w, cfg.Level)
		slog.SetDefault(logState.logger)
	})
	return logState.logger, err
}

// GetLogger returns the process logger, or slog.Default before InitializeLogger.
func GetLogger() *slog.Logger {
	if logState.logger == nil {
		return slog.Default()
	}
	return logState.logger
}

// NewLogger returns a JSON logger on w that stamps records with the trace ID
// carried by their context.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(traceHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}),
	})
}

func logWriter(cfg config.LoggingConfig) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	logState.mu.Lock()
	logState.file = f
	logState.mu.Unlock()

	if output == "both" {
		return io.MultiWriter(os.Stderr, f), nil
	}
	return f, nil
}

// traceHandler adds trace_id to every record whose context has one: the
// request trace ID first, else the ID of the active OTel span.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	id := GetTraceID(ctx)
	if id == "" {
		id = TraceIDFromContext(ctx)
	}
	if id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel maps a config level to slog; unknown values mean info.
func parseLogLevel(level string) slog.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logState.mu.Lock()
	defer logState.mu.Unlock()

	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// ResetLoggerForTesting lets a test call InitializeLogger again.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	logState.logger = nil
	logState.once = sync.Once{}
}
