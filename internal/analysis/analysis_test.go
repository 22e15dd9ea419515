package analysis

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/internal/shared/testutil"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureInputs(t *testing.T) *dataprocessing.BuildingInputs {
	t.Helper()
	readers := make(map[string]io.Reader)
	for key, content := range testutil.BuildingCSV() {
		readers[key] = strings.NewReader(content)
	}
	in, err := dataprocessing.ReadBuilding(readers)
	require.NoError(t, err)
	return in
}

func hours(n int) []time.Time {
	return dataprocessing.HourlyIndex(testutil.FixtureStart, testutil.FixtureStart.Add(time.Duration(n-1)*time.Hour))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
		ok   bool
	}{
		{"odd", []float64{3, 1, 2}, 2, true},
		{"even", []float64{4, 1, 3, 2}, 2.5, true},
		{"skips NaN", []float64{math.NaN(), 5, 7}, 6, true},
		{"all NaN", []float64{math.NaN()}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.xs)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFilterZonesDropsOutOfRangeMedians(t *testing.T) {
	in := fixtureInputs(t)

	filtered, removed := FilterZones(in, 30, 200)

	assert.Equal(t, []string{"Z3"}, removed)
	assert.Equal(t, []string{"Z1", "Z2"}, filtered.IAT.Columns())
	assert.Equal(t, []string{"Z1", "Z2"}, filtered.HSP.Columns())
	assert.Equal(t, []string{"Z1", "Z2"}, filtered.CSP.Columns())
	assert.Equal(t, []string{"Z1", "Z2"}, filtered.Airflow.Columns())
	assert.Equal(t, 2, filtered.Map.Len())

	// The original inputs are left untouched.
	assert.Equal(t, []string{"Z1", "Z2", "Z3"}, in.IAT.Columns())
}

func TestZonalCoolingSplitsByProportion(t *testing.T) {
	in, _ := FilterZones(fixtureInputs(t), 30, 200)

	zonal, err := ZonalCooling(quietLogger(), "fixture", ZonalInputs{
		AHUDat:  in.AHUDat,
		IAT:     in.IAT,
		Airflow: in.Airflow,
		Map:     in.Map,
		Cooling: in.Cooling,
	})
	require.NoError(t, err)

	require.Equal(t, testutil.FixtureHours, zonal.Len())
	assert.Equal(t, []string{"Z1", "Z2"}, zonal.Columns())

	z1, z2 := testutil.FixtureShares()
	for i, total := range zonal.RowSums() {
		assert.InDelta(t, testutil.FixtureCooling, total, 1e-9, "row %d", i)
		assert.InDelta(t, z1, zonal.At(i, 0), 1e-9)
		assert.InDelta(t, z2, zonal.At(i, 1), 1e-9)
	}
}

func TestZonalCoolingEdgeCases(t *testing.T) {
	idx := hours(3)
	frame := func(columns []string, values ...float64) *dataprocessing.Frame {
		rows := make([][]float64, len(idx))
		for i := range rows {
			rows[i] = values
		}
		f, err := dataprocessing.NewFrameFromRows(idx, columns, rows)
		require.NoError(t, err)
		return f
	}
	zoneMap := func(lines string) *dataprocessing.ZoneMap {
		m, err := dataprocessing.ReadZoneMap(strings.NewReader(lines))
		require.NoError(t, err)
		return m
	}

	t.Run("negative proportions yield no cooling", func(t *testing.T) {
		zonal, err := ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:  frame([]string{"AHU1"}, 80),
			IAT:     frame([]string{"Z1"}, 70),
			Airflow: frame([]string{"Z1"}, 100),
			Map:     zoneMap("ZoneID,AHUID\nZ1,AHU1\n"),
			Cooling: frame([]string{dataprocessing.CoolingColumn}, 10),
		})
		require.NoError(t, err)
		assert.True(t, zonal.Empty())
	})

	t.Run("AHU missing from data", func(t *testing.T) {
		zonal, err := ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:  frame([]string{"AHU1"}, 55),
			IAT:     frame([]string{"Z1", "Z2"}, 70, 70),
			Airflow: frame([]string{"Z1", "Z2"}, 100, 100),
			Map:     zoneMap("ZoneID,AHUID\nZ1,AHU1\nZ2,AHU9\n"),
			Cooling: frame([]string{dataprocessing.CoolingColumn}, 10),
		})
		require.NoError(t, err)
		require.Equal(t, 3, zonal.Len())
		assert.InDelta(t, 10, zonal.At(0, 0), 1e-9)
		assert.Equal(t, 0.0, zonal.At(0, 1))
	})

	t.Run("no zone with data", func(t *testing.T) {
		_, err := ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:  frame([]string{"AHU1"}, 55),
			IAT:     frame([]string{"Z1"}, 70),
			Airflow: frame([]string{"Z1"}, 100),
			Map:     zoneMap("ZoneID,AHUID\nZ7,AHU1\n"),
			Cooling: frame([]string{dataprocessing.CoolingColumn}, 10),
		})
		assert.ErrorIs(t, err, domain.ErrNoValidZones)
	})

	t.Run("span over the limit names the input", func(t *testing.T) {
		typo := testutil.FixtureStart.AddDate(-100, 0, 0)
		coolingIdx := append([]time.Time{typo}, idx...)
		cooling, err := dataprocessing.NewFrameFromRows(coolingIdx, []string{dataprocessing.CoolingColumn},
			[][]float64{{10}, {10}, {10}, {10}})
		require.NoError(t, err)

		_, err = ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:       frame([]string{"AHU1"}, 55),
			IAT:          frame([]string{"Z1"}, 70),
			Airflow:      frame([]string{"Z1"}, 100),
			Map:          zoneMap("ZoneID,AHUID\nZ1,AHU1\n"),
			Cooling:      cooling,
			MaxSpanHours: 24 * 366,
		})
		require.ErrorIs(t, err, domain.ErrSpanTooLong)
		var inputErr *dataprocessing.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, dataprocessing.InputCooling, inputErr.Key)
	})

	t.Run("span within the limit", func(t *testing.T) {
		zonal, err := ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:       frame([]string{"AHU1"}, 55),
			IAT:          frame([]string{"Z1"}, 70),
			Airflow:      frame([]string{"Z1"}, 100),
			Map:          zoneMap("ZoneID,AHUID\nZ1,AHU1\n"),
			Cooling:      frame([]string{dataprocessing.CoolingColumn}, 10),
			MaxSpanHours: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, zonal.Len())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ZonalCooling(quietLogger(), "b", ZonalInputs{
			AHUDat:  dataprocessing.NewFrame(nil, []string{"AHU1"}),
			IAT:     frame([]string{"Z1"}, 70),
			Airflow: frame([]string{"Z1"}, 100),
			Map:     zoneMap("ZoneID,AHUID\nZ1,AHU1\n"),
			Cooling: frame([]string{dataprocessing.CoolingColumn}, 10),
		})
		assert.ErrorIs(t, err, domain.ErrEmptyInput)
	})
}

func TestBinOf(t *testing.T) {
	// hsp 70, csp 76: cuts at 71.5, 73 and 74.5
	tests := []struct {
		iat  float64
		want int
	}{
		{69.9, 0},
		{70, 1},
		{71.5, 2},
		{73, 3},
		{74, 3},
		{74.5, 4},
		{76, 5},
		{90, 5},
	}
	for _, tt := range tests {
		bin, ok := BinOf(tt.iat, 70, 76)
		require.True(t, ok)
		assert.Equal(t, tt.want, bin, "iat %v", tt.iat)
	}

	_, ok := BinOf(math.NaN(), 70, 76)
	assert.False(t, ok)
}

func TestBinOfInvertedSetpoints(t *testing.T) {
	// A negative deadband collapses to zero width.
	bin, ok := BinOf(70, 72, 68)
	require.True(t, ok)
	assert.Equal(t, 0, bin)

	bin, ok = BinOf(72, 72, 68)
	require.True(t, ok)
	assert.Equal(t, 5, bin)
}

func TestFrequencyLabels(t *testing.T) {
	ts := time.Date(2024, 1, 3, 15, 42, 0, 0, time.UTC) // Wednesday

	assert.Equal(t, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), Hourly.Label(ts))
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Daily.Label(ts))
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), Weekly.Label(ts))
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Monthly.Label(ts))

	sunday := time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), Weekly.Label(sunday))

	leap := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Monthly.Label(leap))
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    Frequency
		wantErr bool
	}{
		{"", Weekly, false},
		{"H", Hourly, false},
		{"d", Daily, false},
		{" w ", Weekly, false},
		{"M", Monthly, false},
		{"Y", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrequency(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResampleFillsEmptyPeriods(t *testing.T) {
	idx := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC),
	}
	f, err := dataprocessing.NewFrameFromRows(idx, []string{"a"}, [][]float64{{1}, {math.NaN()}, {4}})
	require.NoError(t, err)

	daily, err := Resample(f, Daily)
	require.NoError(t, err)

	require.Equal(t, 3, daily.Len())
	col, _ := daily.Column("a")
	assert.Equal(t, []float64{1, 0, 4}, col)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), daily.Index()[1])

	_, err = Resample(f, Frequency("Q"))
	assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
}

func TestResampleWeeklyFixture(t *testing.T) {
	analysis, err := ProcessBuilding(quietLogger(), "fixture", fixtureInputs(t), DefaultOptions())
	require.NoError(t, err)

	weekly := dataprocessing.FromData(analysis.BinnedWeekly)
	require.Equal(t, 1, weekly.Len())
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), weekly.Index()[0])
	assert.InDelta(t, testutil.FixtureCooling*testutil.FixtureHours, weekly.Total(), 1e-6)
}

func TestProcessBuildingFixture(t *testing.T) {
	analysis, err := ProcessBuilding(quietLogger(), "fixture", fixtureInputs(t), DefaultOptions())
	require.NoError(t, err)

	z1, z2 := testutil.FixtureShares()
	n := float64(testutil.FixtureHours)

	binned := dataprocessing.FromData(analysis.BinnedHourly)
	assert.Equal(t, domain.BinColumns(), binned.Columns())
	sums := binned.ColumnSums()
	assert.InDelta(t, z1*n, sums[0], 1e-6, "Z1 sits below its heating setpoint")
	assert.InDelta(t, z2*n, sums[3], 1e-6, "Z2 sits in the 50-75%% band")
	assert.Equal(t, 0.0, sums[1]+sums[2]+sums[4]+sums[5])

	require.Len(t, analysis.TopWasteful.Rows, 2)
	assert.Equal(t, "Z1", analysis.TopWasteful.Rows[0].Zone)
	assert.InDelta(t, z1*n, analysis.TopWasteful.Rows[0].Value, 1e-6)
	assert.Equal(t, 100.0, analysis.TopWasteful.Rows[0].Percent)
	assert.Equal(t, 0.0, analysis.TopWasteful.Rows[1].Value)
	assert.Equal(t, domain.WastefulValueLabel, analysis.TopWasteful.ValueLabel)

	require.Len(t, analysis.TopDemanding.Rows, 2)
	assert.Equal(t, "Z2", analysis.TopDemanding.Rows[0].Zone)
	assert.Equal(t, 68.3, analysis.TopDemanding.Rows[0].Percent)
	assert.Equal(t, 31.7, analysis.TopDemanding.Rows[1].Percent)

	assert.Equal(t, []string{"Z1", "Z2"}, analysis.IAT.Columns)
}

func TestProcessBuildingWithoutFilterKeepsColdZone(t *testing.T) {
	opts := DefaultOptions()
	opts.FilterZones = false

	analysis, err := ProcessBuilding(quietLogger(), "fixture", fixtureInputs(t), opts)
	require.NoError(t, err)

	// Z3 at 5 degrees is below its discharge temperature and gets no share.
	assert.Equal(t, []string{"Z1", "Z2", "Z3"}, analysis.ZonalCooling.Columns)
	zonal := dataprocessing.FromData(analysis.ZonalCooling)
	col, _ := zonal.Column("Z3")
	assert.Equal(t, 0.0, dataprocessing.NaNSum(col))
}

func TestTopNTruncatesAndSorts(t *testing.T) {
	zones := make([]string, 12)
	values := make([]float64, 12)
	for i := range zones {
		zones[i] = string(rune('a' + i))
		values[i] = float64(i)
	}

	rows := topN(zones, values, 66, 10)
	require.Len(t, rows, 10)
	assert.Equal(t, "l", rows[0].Zone)
	assert.Equal(t, 16.7, rows[0].Percent)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Value, rows[i].Value)
	}

	zero := topN([]string{"a", "b"}, []float64{0, 0}, 0, 10)
	assert.Equal(t, "a", zero[0].Zone)
	assert.Equal(t, 0.0, zero[0].Percent)
}

func TestSummarizeAndRegroup(t *testing.T) {
	idx := hours(2)
	binned, err := dataprocessing.NewFrameFromRows(idx, domain.BinColumns(), [][]float64{
		{1, 2, 3, 4, 5, 5},
		{0, 0, 0, 0, 0, 0},
	})
	require.NoError(t, err)

	s := Summarize(binned)
	assert.Equal(t, 20.0, s.Total)
	assert.Equal(t, 1.0, s.Wasted)
	assert.Equal(t, 5.0, s.Excess)
	assert.Equal(t, 14.0, s.Useful)
	assert.InDelta(t, 5.0, s.WastedPct, 1e-9)
	assert.InDelta(t, 70.0, s.UsefulPct, 1e-9)

	regrouped := Regroup(binned)
	assert.Equal(t, []string{"Wasted", "Excess", "Useful"}, regrouped.Columns())
	assert.Equal(t, []float64{1, 5, 14}, regrouped.Row(0))

	frac := Fractional(regrouped)
	assert.InDelta(t, 0.05, frac.At(0, 0), 1e-9)
	assert.Equal(t, []float64{0, 0, 0}, frac.Row(1))

	empty := Summarize(dataprocessing.NewFrame(nil, domain.BinColumns()))
	assert.Equal(t, domain.Summary{}, empty)
}

func TestViewAndZoneDetail(t *testing.T) {
	analysis, err := ProcessBuilding(quietLogger(), "fixture", fixtureInputs(t), DefaultOptions())
	require.NoError(t, err)

	view, err := View(analysis, Daily)
	require.NoError(t, err)
	assert.Equal(t, "D", view.Frequency)
	assert.Len(t, view.Binned.Index, 2)
	assert.InDelta(t, testutil.FixtureCooling*testutil.FixtureHours, view.Summary.Total, 1e-6)
	assert.Equal(t, analysis.TopWasteful, view.TopWasteful)

	detail, err := ZoneDetail(analysis, "Z2")
	require.NoError(t, err)
	assert.Equal(t, []string{"iat", "hsp", "csp", "airflow", "cooling"}, detail.Series.Columns)
	require.Len(t, detail.Series.Rows, testutil.FixtureHours)
	assert.Equal(t, domain.Value(74), detail.Series.Rows[0][0])

	_, err = ZoneDetail(analysis, "Z3")
	assert.ErrorIs(t, err, domain.ErrZoneNotFound)
}
