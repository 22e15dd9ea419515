// Command dashboard serves the pre-processed cooling analysis over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/AlexisBnnft/Building-Waste/internal/app"
	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

type options struct {
	host       string
	port       int
	configFile string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(config.DashboardProgram, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.host, "host", "", "listen host (defaults to the configured host)")
	fs.IntVar(&opts.port, "port", -1, "listen port, 0 picks a free one (defaults to the configured port)")
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// applyOverrides copies the flags that were given onto the server config
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port >= 0 {
		cfg.Server.Port = opts.port
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
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
	applyOverrides(cfg, opts)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
