package exporter

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

var t0 = time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

func sampleView() (*domain.BuildingAnalysis, *domain.AnalysisView) {
	binned := domain.FrameData{
		Index:   []time.Time{t0, t0.AddDate(0, 0, 7)},
		Columns: []string{"bin1_IAT<HSP", "bin4_50-75%"},
		Rows:    [][]domain.Value{{1.5, 2}, {0, domain.Value(math.NaN())}},
	}
	regrouped := domain.FrameData{
		Index:   binned.Index,
		Columns: []string{"Wasted", "Useful"},
		Rows:    [][]domain.Value{{1.5, 2}, {0, 0}},
	}
	ranking := domain.Ranking{
		ValueLabel:   domain.WastefulValueLabel,
		PercentLabel: domain.WastefulPercentLabel,
		Rows:         []domain.ZoneRank{{Zone: "Z1", Value: 1.5, Percent: 100}},
	}
	a := &domain.BuildingAnalysis{Name: "Building_A", ZonalCooling: binned}
	return a, &domain.AnalysisView{
		Building:     "Building_A",
		Frequency:    "W",
		Summary:      domain.Summary{Total: 3.5, Wasted: 1.5, Useful: 2},
		Binned:       binned,
		Regrouped:    regrouped,
		TopWasteful:  ranking,
		TopDemanding: ranking,
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{123, "123"},
		{-789.123, "-789.123"},
		{0.000001, "0.000001"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(domain.Value(tt.in)))
	}
}

func TestWriteViewCSV(t *testing.T) {
	_, view := sampleView()

	var buf bytes.Buffer
	require.NoError(t, WriteViewCSV(&buf, view))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,bin1_IAT<HSP,bin4_50-75%,Wasted,Useful", lines[0])
	assert.Equal(t, "2024-01-07 00:00:00,1.5,2,1.5,2", lines[1])
	assert.Equal(t, "2024-01-14 00:00:00,0,,0,0", lines[2])
}

func TestCSVWriterResolvesOutputDir(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(&config.Paths{OutputDir: dir}, nil)

	_, view := sampleView()
	path, err := w.WriteFile(filepath.Join("exports", "a.csv"), view.Binned)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "a.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bin1_IAT<HSP")
}

func TestWriteWorkbook(t *testing.T) {
	a, view := sampleView()

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, a, view))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetSummary, SheetBinned, SheetRegrouped, SheetZonalCooling, SheetWasteful, SheetDemanding,
	}, f.GetSheetList())

	rows, err := f.GetRows(SheetBinned)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"timestamp", "bin1_IAT<HSP", "bin4_50-75%"}, rows[0])
	assert.Equal(t, "2024-01-07 00:00:00", rows[1][0])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Building", "Building_A"}, summary[1])

	wasteful, err := f.GetRows(SheetWasteful)
	require.NoError(t, err)
	assert.Equal(t, domain.WastefulValueLabel, wasteful[0][1])
	assert.Equal(t, "Z1", wasteful[1][0])
}
