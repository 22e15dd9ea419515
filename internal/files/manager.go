package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// SampleBuildings are the directories created by CreateSampleStructure
var SampleBuildings = []string{
	"Building_A",
	"Building_B",
	"Building_C",
	"Building_D",
	"Building_E",
	"Building_F",
}

// Manager provides file management operations on the input folder
type Manager struct {
	root      string
	backupDir string
	logger    *slog.Logger
}

// NewManager creates a new file manager. backupDir defaults to the input
// folder with config.BackupDirSuffix appended.
func NewManager(root, backupDir string, logger *slog.Logger) *Manager {
	if backupDir == "" {
		backupDir = strings.TrimRight(root, `/\`) + config.BackupDirSuffix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{root: root, backupDir: backupDir, logger: logger}
}

// BackupDir returns the backup location of the original files
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// CreateSampleStructure turns a single-building input folder into a
// multi-building one. The loose files are copied to the backup folder (only
// when it does not exist yet), duplicated into every SampleBuildings
// directory and finally removed from the root.
func (m *Manager) CreateSampleStructure() ([]string, error) {
	if _, err := os.Stat(m.root); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDataDirNotFound, m.root)
	}

	if _, err := os.Stat(m.backupDir); errors.Is(err, os.ErrNotExist) {
		m.logger.Info("Creating backup of original data",
			slog.String("backup_dir", m.backupDir))
		if err := m.CopyDir(m.root, m.backupDir); err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", m.root, err)
		}
	}

	sources, err := m.ListFiles(m.backupDir)
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(SampleBuildings))
	for _, name := range SampleBuildings {
		dir := filepath.Join(m.root, name)
		for _, file := range sources {
			if err := m.CopyFile(filepath.Join(m.backupDir, file), filepath.Join(dir, file)); err != nil {
				return created, err
			}
		}
		created = append(created, dir)
		m.logger.Info("Created sample building", slog.String("building", name))
	}

	loose, err := m.ListFiles(m.root)
	if err != nil {
		return created, err
	}
	for _, file := range loose {
		if err := os.Remove(filepath.Join(m.root, file)); err != nil {
			return created, fmt.Errorf("failed to remove %s: %w", file, err)
		}
	}

	return created, nil
}

// CopyDir copies the regular files of src into dst, recursively.
func (m *Manager) CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return m.CopyFile(path, target)
	})
}

// CopyFile copies a file from source to destination, keeping its mode and
// modification time
func (m *Manager) CopyFile(src, dst string) error {
	m.logger.Debug("Copying file",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// ListFiles returns the names of the regular, non-hidden files of dir
func (m *Manager) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !isHidden(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
