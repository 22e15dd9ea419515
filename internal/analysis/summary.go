package analysis

import (
	"math"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// binSum sums the named bin column; an absent column sums to 0.
func binSum(binned *dataprocessing.Frame, key domain.BinKey) float64 {
	col, ok := binned.Column(string(key))
	if !ok {
		return 0
	}
	return dataprocessing.NaNSum(col)
}

// Summarize totals a binned frame by category.
func Summarize(binned *dataprocessing.Frame) domain.Summary {
	var s domain.Summary
	for _, key := range domain.BinKeys {
		v := binSum(binned, key)
		s.Total += v
		switch domain.Bins[key].Category {
		case domain.CategoryWasted:
			s.Wasted += v
		case domain.CategoryExcess:
			s.Excess += v
		case domain.CategoryUseful:
			s.Useful += v
		}
	}

	if s.Total > 0 {
		s.UsefulPct = s.Useful / s.Total * 100
		s.ExcessPct = s.Excess / s.Total * 100
		s.WastedPct = s.Wasted / s.Total * 100
	}
	return s
}

// Regroup collapses the six bins into the Wasted, Excess and Useful
// categories. Missing bins count as 0.
func Regroup(binned *dataprocessing.Frame) *dataprocessing.Frame {
	columns := make([]string, len(domain.Categories))
	slot := make(map[domain.Category]int, len(domain.Categories))
	for i, c := range domain.Categories {
		columns[i] = string(c)
		slot[c] = i
	}

	out := dataprocessing.NewFrame(binned.Index(), columns)
	for i := 0; i < binned.Len(); i++ {
		sums := make([]float64, len(columns))
		for _, key := range domain.BinKeys {
			j := binned.ColumnIndex(string(key))
			if j < 0 {
				continue
			}
			if v := binned.At(i, j); !math.IsNaN(v) {
				sums[slot[domain.Bins[key].Category]] += v
			}
		}
		for j, v := range sums {
			out.Set(i, j, v)
		}
	}
	return out
}

// Fractional divides every row by its total. Rows summing to 0 become 0.
func Fractional(f *dataprocessing.Frame) *dataprocessing.Frame {
	out := f.Clone()
	totals := f.RowSums()
	for i := 0; i < f.Len(); i++ {
		for j := 0; j < f.Width(); j++ {
			v := f.At(i, j) / totals[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			out.Set(i, j, v)
		}
	}
	return out
}
