package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
)

// Median returns the median of xs ignoring NaN. ok is false when xs holds no
// valid value.
func Median(xs []float64) (median float64, ok bool) {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	n := len(valid)
	if n == 0 {
		return math.NaN(), false
	}

	sort.Float64s(valid)
	if n%2 == 1 {
		return valid[n/2], true
	}
	return stat.Mean(valid[n/2-1:n/2+1], nil), true
}

// ValidZones returns the iat columns whose median lies in [min, max], in
// column order.
func ValidZones(iat *dataprocessing.Frame, min, max float64) []string {
	var zones []string
	for _, zone := range iat.Columns() {
		col, _ := iat.Column(zone)
		m, ok := Median(col)
		if ok && m >= min && m <= max {
			zones = append(zones, zone)
		}
	}
	return zones
}

// FilterZones keeps only the zones of ValidZones in the iat, hsp, csp and
// airflow frames and in the zone map (matched on its first column). It
// returns the filtered inputs and the removed zones.
func FilterZones(in *dataprocessing.BuildingInputs, min, max float64) (*dataprocessing.BuildingInputs, []string) {
	valid := ValidZones(in.IAT, min, max)
	keep := make(map[string]bool, len(valid))
	for _, z := range valid {
		keep[z] = true
	}

	var removed []string
	for _, z := range in.IAT.Columns() {
		if !keep[z] {
			removed = append(removed, z)
		}
	}

	out := *in
	out.IAT = selectPresent(in.IAT, valid)
	out.HSP = selectPresent(in.HSP, valid)
	out.CSP = selectPresent(in.CSP, valid)
	out.Airflow = selectPresent(in.Airflow, valid)
	out.Map = in.Map.FilterFirstColumn(func(zone string) bool { return keep[zone] })
	return &out, removed
}

// selectPresent keeps the listed columns that exist in f, in list order.
func selectPresent(f *dataprocessing.Frame, columns []string) *dataprocessing.Frame {
	present := make([]string, 0, len(columns))
	for _, c := range columns {
		if f.HasColumn(c) {
			present = append(present, c)
		}
	}
	return f.Select(present)
}
