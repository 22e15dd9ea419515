package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Building is one discovered building directory
type Building struct {
	Name    string
	Dir     string
	Missing []string
}

// Complete reports whether every required input file is present
func (b Building) Complete() bool {
	return len(b.Missing) == 0
}

// MissingError describes the absent files of a building
func (b Building) MissingError() error {
	if b.Complete() {
		return nil
	}
	return fmt.Errorf("%w: building %s lacks %s", domain.ErrMissingFile, b.Name, strings.Join(b.Missing, ", "))
}

// Discovery locates buildings under the input folder
type Discovery struct {
	root   string
	logger *slog.Logger
}

// NewDiscovery creates a new discovery rooted at the input folder
func NewDiscovery(root string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{root: root, logger: logger}
}

// Root returns the input folder
func (d *Discovery) Root() string {
	return d.root
}

// Discover lists the buildings of the input folder. A folder without
// subdirectories is a single building named config.DefaultBuildingName.
func (d *Discovery) Discover() ([]Building, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDataDirNotFound, d.root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if isHidden(entry.Name()) || !entry.IsDir() {
			continue
		}
		dirs = append(dirs, entry.Name())
	}

	if len(dirs) == 0 {
		d.logger.Debug("No building subdirectories found, using input folder as a single building",
			slog.String("root", d.root))
		return []Building{newBuilding(config.DefaultBuildingName, d.root)}, nil
	}

	sort.Strings(dirs)
	buildings := make([]Building, 0, len(dirs))
	for _, name := range dirs {
		buildings = append(buildings, newBuilding(name, filepath.Join(d.root, name)))
	}
	return buildings, nil
}

// IsSingleBuilding reports whether the input folder holds a single building
// directly
func (d *Discovery) IsSingleBuilding() (bool, error) {
	buildings, err := d.Discover()
	if err != nil {
		return false, err
	}
	return len(buildings) == 1 && buildings[0].Name == config.DefaultBuildingName, nil
}

// MissingFiles returns the required input files absent from dir
func MissingFiles(dir string) []string {
	var missing []string
	for _, input := range dataprocessing.RequiredInputs {
		info, err := os.Stat(filepath.Join(dir, input.File))
		if err != nil || info.IsDir() {
			missing = append(missing, input.File)
		}
	}
	return missing
}

func newBuilding(name, dir string) Building {
	return Building{Name: name, Dir: dir, Missing: MissingFiles(dir)}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
