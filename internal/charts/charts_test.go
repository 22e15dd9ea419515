package charts

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func sampleView() *domain.AnalysisView {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	index := []time.Time{start, start.AddDate(0, 0, 7)}

	binned := domain.FrameData{Index: index, Columns: domain.BinColumns()}
	binned.Rows = [][]domain.Value{
		{1, 2, 3, 4, 5, 6},
		{0, 0, 0, 0, 0, domain.Value(math.NaN())},
	}
	regrouped := domain.FrameData{
		Index:   index,
		Columns: []string{"Wasted", "Excess", "Useful"},
		Rows:    [][]domain.Value{{1, 5, 15}, {0, 0, 0}},
	}
	ranking := domain.Ranking{
		ValueLabel: domain.DemandingValueLabel,
		Rows:       []domain.ZoneRank{{Zone: "Z2", Value: 20}, {Zone: "Z1", Value: 10}},
	}
	return &domain.AnalysisView{
		Building:     "Building_A",
		Frequency:    "W",
		Binned:       binned,
		Regrouped:    regrouped,
		TopWasteful:  ranking,
		TopDemanding: ranking,
	}
}

func TestRenderEveryKind(t *testing.T) {
	view := sampleView()
	for _, kind := range Kinds {
		for _, normalize := range []bool{false, true} {
			var buf bytes.Buffer
			opts := Options{Width: 300, Height: 200, Normalize: normalize}
			require.NoError(t, Render(&buf, view, kind, opts), kind)

			img, err := png.Decode(&buf)
			require.NoError(t, err, kind)
			assert.Greater(t, img.Bounds().Dx(), 0)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	view := sampleView()

	err := Render(&bytes.Buffer{}, view, Kind("pie"), DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrUnknownChart)

	view.TopWasteful.Rows = nil
	err = Render(&bytes.Buffer{}, view, KindWasteful, DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	view.Binned = domain.FrameData{}
	err = Render(&bytes.Buffer{}, view, KindBins, DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("regrouped")
	require.NoError(t, err)
	assert.Equal(t, KindRegrouped, k)

	_, err = ParseKind("bins.png")
	assert.ErrorIs(t, err, domain.ErrUnknownChart)
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}, parseHex("#e74c3c", 0))
	assert.Equal(t, fallbackPalette[1], parseHex("bad", 1))
}

func TestPeriodLabels(t *testing.T) {
	ts := []time.Time{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, []string{"2024-03"}, periodLabels(ts, "M"))
	assert.Equal(t, []string{"2024-03-31"}, periodLabels(ts, "W"))
	assert.Equal(t, []string{"03-31 00h"}, periodLabels(ts, "H"))
}
