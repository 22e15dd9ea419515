package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the resolved file system locations used by every binary
type Paths struct {
	WorkDir           string
	InputDir          string
	BackupDir         string
	OutputDir         string
	LogsDir           string
	ArchiveFile       string
	BuildingsInfoFile string
}

// ResolvePaths turns the configured (possibly relative) paths into absolute ones.
func (c *Config) ResolvePaths() (*Paths, error) {
	workDir := c.Paths.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(workDir, p)
	}

	inputDir := resolve(c.Paths.InputDir)
	outputDir := resolve(c.Paths.OutputDir)

	return &Paths{
		WorkDir:           workDir,
		InputDir:          inputDir,
		BackupDir:         inputDir + BackupDirSuffix,
		OutputDir:         outputDir,
		LogsDir:           resolve(c.Paths.LogsDir),
		ArchiveFile:       filepath.Join(outputDir, ArchiveFileName),
		BuildingsInfoFile: filepath.Join(outputDir, BuildingsInfoFileName),
	}, nil
}

// ExecutableDir returns the directory holding the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// DefaultPreprocessCommand is the preprocess binary shipped next to the
// setup executable.
func DefaultPreprocessCommand() ([]string, error) {
	dir, err := ExecutableDir()
	if err != nil {
		return nil, err
	}

	name := PreprocessProgram
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return []string{filepath.Join(dir, name)}, nil
}
