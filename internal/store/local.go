package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// LocalStore reads and writes the archive and the buildings info on disk.
type LocalStore struct {
	archivePath string
	infoPath    string
}

// NewLocalStore creates a store for the given file locations.
func NewLocalStore(archivePath, infoPath string) *LocalStore {
	return &LocalStore{archivePath: archivePath, infoPath: infoPath}
}

// NewLocalStoreFromPaths uses the artifact locations of resolved paths.
func NewLocalStoreFromPaths(paths *config.Paths) *LocalStore {
	return NewLocalStore(paths.ArchiveFile, paths.BuildingsInfoFile)
}

// ArchivePath returns the archive file location
func (s *LocalStore) ArchivePath() string { return s.archivePath }

// InfoPath returns the buildings info file location
func (s *LocalStore) InfoPath() string { return s.infoPath }

// Save writes the archive, then the buildings info derived from it. Each
// file is replaced atomically.
func (s *LocalStore) Save(archive *domain.AnalysisArchive) error {
	if archive.Version == "" {
		archive.Version = contracts.DataFormatVersion
	}
	if err := writeJSONAtomic(s.archivePath, archive); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	if err := writeJSONAtomic(s.infoPath, InfoOf(archive)); err != nil {
		return fmt.Errorf("save buildings info: %w", err)
	}
	return nil
}

// LoadArchive reads the archive. A missing file yields ErrArchiveNotFound.
func (s *LocalStore) LoadArchive() (*domain.AnalysisArchive, error) {
	f, err := os.Open(s.archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, s.archivePath)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return ReadArchive(f)
}

// LoadInfo reads the buildings info. A missing file yields ErrArchiveNotFound.
func (s *LocalStore) LoadInfo() (*domain.BuildingsInfo, error) {
	data, err := os.ReadFile(s.infoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, s.infoPath)
		}
		return nil, fmt.Errorf("read buildings info: %w", err)
	}

	var info domain.BuildingsInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode buildings info: %w", err)
	}
	return &info, nil
}

// Stamp returns the modification time of the archive, used to notice a
// new preprocessing run.
func (s *LocalStore) Stamp() (time.Time, error) {
	st, err := os.Stat(s.archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", domain.ErrArchiveNotFound, s.archivePath)
		}
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

// ReadArchive decodes an archive and checks its format version.
func ReadArchive(r io.Reader) (*domain.AnalysisArchive, error) {
	var archive domain.AnalysisArchive
	if err := json.NewDecoder(r).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	if archive.Version != contracts.DataFormatVersion {
		return nil, fmt.Errorf("%w: format %q, expected %q", domain.ErrArchiveNotFound,
			archive.Version, contracts.DataFormatVersion)
	}
	if archive.Buildings == nil {
		archive.Buildings = make(map[string]domain.BuildingAnalysis)
	}
	return &archive, nil
}

// InfoOf lists the buildings of an archive in name order.
func InfoOf(archive *domain.AnalysisArchive) domain.BuildingsInfo {
	names := make([]string, 0, len(archive.Buildings))
	for name := range archive.Buildings {
		names = append(names, name)
	}
	sort.Strings(names)
	return domain.BuildingsInfo{Names: names}
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
