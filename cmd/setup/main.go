// Command setup prepares a workstation for the cooling waste dashboard: it
// installs the runtime packages and runs the pre-processing program once.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/dependencies"
	"github.com/AlexisBnnft/Building-Waste/internal/files"
	"github.com/AlexisBnnft/Building-Waste/internal/infrastructure"
	"github.com/AlexisBnnft/Building-Waste/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setupOptions holds the flags shared by every subcommand
type setupOptions struct {
	configFile  string
	variant     string
	skipInstall bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &setupOptions{}

	root := &cobra.Command{
		Use:   "setup",
		Short: "Install dependencies and pre-process the building data",
		Long: `Install the dashboard runtime packages with the configured package
manager, then run the pre-processing program from the workspace root.

The final message is printed only when pre-processing succeeded.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return runSetup(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.variant, "variant", "", "dependency variant (base or cloud)")
	root.Flags().BoolVar(&opts.skipInstall, "skip-install", false, "skip dependency installation")

	root.AddCommand(newDepsCmd(opts), newSampleCmd(opts))
	return root
}

func newDepsCmd(opts *setupOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Print the packages of a dependency variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			manifest, err := dependencies.Load(cfg.Setup.Manifest)
			if err != nil {
				return err
			}
			packages, err := manifest.Resolve(cfg.Setup.Variant)
			if err != nil {
				return err
			}
			for _, p := range packages {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newSampleCmd(opts *setupOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Split a single-building input folder into sample buildings",
		Long: `Copy the input files to the backup folder, duplicate them into
Building_A to Building_F and remove the loose files from the input folder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			paths, err := cfg.ResolvePaths()
			if err != nil {
				return err
			}
			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			v := validation.NewFileValidator(logger)
			if err := v.ValidateInputDirectory(paths.InputDir); err != nil {
				return err
			}
			// Without a backup the loose files are the only source.
			if _, err := os.Stat(paths.BackupDir); errors.Is(err, os.ErrNotExist) {
				n, err := v.CountFiles(paths.InputDir, "*.csv")
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("no CSV files to split in %s", paths.InputDir)
				}
			}

			created, err := files.NewManager(paths.InputDir, paths.BackupDir, logger).CreateSampleStructure()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d sample buildings in %s\n", len(created), paths.InputDir)
			return nil
		},
	}
}

// loadConfig loads the configuration and applies the command line overrides
func loadConfig(opts *setupOptions) (*config.Config, error) {
	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.variant != "" {
		cfg.Setup.Variant = opts.variant
	}
	if opts.skipInstall {
		cfg.Setup.SkipInstall = true
	}
	return cfg, nil
}
