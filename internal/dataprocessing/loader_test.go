package dataprocessing

import (
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 1, 2, 13, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02 13:30:00", want},
		{"2024-01-02 13:30", want},
		{"2024-01-02T13:30:00", want},
		{"2024-01-02T14:30:00+01:00", want},
		{"01/02/2024 13:30", want},
		{"01/02/2024 13:30:00", want},
		{" 2024-01-02 ", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"01/02/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestReadFrame(t *testing.T) {
	input := "\ufefftimestamp, Z1 ,Z2\n" +
		"2024-01-01 00:00:00,70.5,\n" +
		"\n" +
		"2024-01-01 01:00:00,n/a,72\n" +
		"2024-01-01 02:00:00,71\n"

	f, err := ReadFrame(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Z1", "Z2"}, f.Columns())
	require.Equal(t, 3, f.Len())

	z1, _ := f.Column("Z1")
	z2, _ := f.Column("Z2")
	assert.Equal(t, 70.5, z1[0])
	assert.True(t, math.IsNaN(z1[1]), "unparsable numbers are missing")
	assert.True(t, math.IsNaN(z2[0]), "empty cells are missing")
	assert.Equal(t, 72.0, z2[1])
	assert.True(t, math.IsNaN(z2[2]), "short rows are padded")
}

func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: domain.ErrEmptyInput.Error()},
		{name: "no value column", input: "timestamp\n2024-01-01,1\n", wantErr: "at least one value column"},
		{name: "bad timestamp", input: "timestamp,a\nnot-a-date,1\n", wantErr: "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadSeriesKeepsFirstColumn(t *testing.T) {
	f, err := ReadSeries(strings.NewReader("ts,kwh,other\n2024-01-01 00:00,5,9\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{CoolingColumn}, f.Columns())
	assert.Equal(t, 5.0, f.At(0, 0))
}

func TestReadZoneMap(t *testing.T) {
	m, err := ReadZoneMap(strings.NewReader("ZoneID,AHUID,Floor\nZ1,AHU1,1\n,,\nZ2, AHU2 ,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	assignments, err := m.Assignments()
	require.NoError(t, err)
	assert.Equal(t, []ZoneAssignment{{Zone: "Z1", AHU: "AHU1"}, {Zone: "Z2", AHU: "AHU2"}}, assignments)

	filtered := m.FilterFirstColumn(func(z string) bool { return z == "Z2" })
	assert.Equal(t, 1, filtered.Len())
	assert.Equal(t, 2, m.Len())

	bad, err := ReadZoneMap(strings.NewReader("Zone,AHU\nZ1,AHU1\n"))
	require.NoError(t, err)
	_, err = bad.Assignments()
	assert.ErrorIs(t, err, domain.ErrInvalidZoneMap)
}

func TestLoadBuilding(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteBuilding(t, dir)

	in, err := LoadBuilding(dir)
	require.NoError(t, err)
	assert.Equal(t, testutil.FixtureHours, in.IAT.Len())
	assert.Equal(t, []string{"Z1", "Z2", "Z3"}, in.Airflow.Columns())
	assert.Equal(t, []string{"AHU1", "AHU2"}, in.AHUDat.Columns())
	assert.Equal(t, 3, in.Map.Len())
	assert.Equal(t, testutil.FixtureCooling, in.Cooling.At(0, 0))
	assert.Equal(t, testutil.FixtureStart, in.Cooling.Index()[0])
}

func TestLoadBuildingMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadBuilding(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingFile)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, InputIAT, inputErr.Key)

	_, err = LoadFrame(filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)
}

func TestReadBuildingReportsField(t *testing.T) {
	readers := make(map[string]io.Reader)
	for key, content := range testutil.BuildingCSV() {
		readers[key] = strings.NewReader(content)
	}
	readers[InputCSP] = strings.NewReader("timestamp,Z1\nnever,1\n")

	_, err := ReadBuilding(readers)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, InputCSP, inputErr.Key)

	delete(readers, InputMap)
	_, err = ReadBuilding(readers)
	assert.Error(t, err)
}
