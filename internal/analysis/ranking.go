package analysis

import (
	"math"
	"sort"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// DefaultTopN is the size of the zone rankings
const DefaultTopN = 10

// WastefulByZone sums, per zone, the cooling delivered while the zone was
// below its heating setpoint. Temperatures are matched to the cooling grid
// without filling; a missing comparison counts as not wasteful.
func WastefulByZone(zonal, iat, hsp *dataprocessing.Frame) []float64 {
	iatA := iat.Reindex(zonal.Index()).Select(zonal.Columns())
	hspA := hsp.Reindex(zonal.Index()).Select(zonal.Columns())

	totals := make([]float64, zonal.Width())
	for i := 0; i < zonal.Len(); i++ {
		for j := range totals {
			if iatA.At(i, j) < hspA.At(i, j) {
				if v := zonal.At(i, j); !math.IsNaN(v) {
					totals[j] += v
				}
			}
		}
	}
	return totals
}

// TopWasteful ranks the zones by wasted cooling. Percentages are relative to
// bin1Total, the building-wide cooling of the first bin.
func TopWasteful(zonal, iat, hsp *dataprocessing.Frame, bin1Total float64, n int) domain.Ranking {
	return domain.Ranking{
		ValueLabel:   domain.WastefulValueLabel,
		PercentLabel: domain.WastefulPercentLabel,
		Rows:         topN(zonal.Columns(), WastefulByZone(zonal, iat, hsp), bin1Total, n),
	}
}

// TopDemanding ranks the zones by total cooling received.
func TopDemanding(zonal *dataprocessing.Frame, n int) domain.Ranking {
	totals := zonal.ColumnSums()
	return domain.Ranking{
		ValueLabel:   domain.DemandingValueLabel,
		PercentLabel: domain.DemandingPercentLabel,
		Rows:         topN(zonal.Columns(), totals, dataprocessing.NaNSum(totals), n),
	}
}

// topN keeps the n largest values, preserving column order among ties.
func topN(zones []string, values []float64, total float64, n int) []domain.ZoneRank {
	if n <= 0 {
		n = DefaultTopN
	}

	rows := make([]domain.ZoneRank, len(zones))
	for j, zone := range zones {
		rows[j] = domain.ZoneRank{Zone: zone, Value: values[j]}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Value > rows[b].Value
	})
	if len(rows) > n {
		rows = rows[:n]
	}

	for i := range rows {
		if total > 0 {
			rows[i].Percent = round1(rows[i].Value / total * 100)
		}
	}
	return rows
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
