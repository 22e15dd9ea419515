package files

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := NewDiscovery(filepath.Join(t.TempDir(), "absent"), nil).Discover()
	assert.ErrorIs(t, err, domain.ErrDataDirNotFound)
}

func TestDiscoverSingleBuilding(t *testing.T) {
	root := t.TempDir()
	testutil.WriteBuilding(t, root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))

	d := NewDiscovery(root, nil)
	buildings, err := d.Discover()
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, config.DefaultBuildingName, buildings[0].Name)
	assert.Equal(t, root, buildings[0].Dir)
	assert.True(t, buildings[0].Complete())
	assert.NoError(t, buildings[0].MissingError())

	single, err := d.IsSingleBuilding()
	require.NoError(t, err)
	assert.True(t, single)
}

func TestDiscoverLogsThroughInjectedLogger(t *testing.T) {
	root := t.TempDir()
	testutil.WriteBuilding(t, root)
	logger, records := testutil.NewTestLogger(t)

	_, err := NewDiscovery(root, logger).Discover()
	require.NoError(t, err)

	debug := records.GetRecordsByLevel(slog.LevelDebug)
	require.Len(t, debug, 1)
	assert.Contains(t, debug[0].Message, "single building")
	assert.True(t, records.ContainsAttr("root", root))
}

func TestDiscoverMultipleBuildings(t *testing.T) {
	root := t.TempDir()
	testutil.WriteBuilding(t, filepath.Join(root, "Tower"))
	testutil.WriteBuilding(t, filepath.Join(root, "Annex"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Empty"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))

	d := NewDiscovery(root, nil)
	buildings, err := d.Discover()
	require.NoError(t, err)

	names := make([]string, len(buildings))
	for i, b := range buildings {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Annex", "Empty", "Tower"}, names)

	assert.True(t, buildings[0].Complete())
	assert.Len(t, buildings[1].Missing, 7)
	assert.ErrorIs(t, buildings[1].MissingError(), domain.ErrMissingFile)

	single, err := d.IsSingleBuilding()
	require.NoError(t, err)
	assert.False(t, single)
}

func TestMissingFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteBuilding(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "zone_airflow.csv")))

	assert.Equal(t, []string{"zone_airflow.csv"}, MissingFiles(dir))
}
