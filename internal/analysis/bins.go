package analysis

import (
	"fmt"
	"math"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// align conforms f to the rows and columns of like, then fills gaps along
// time in both directions.
func align(f, like *dataprocessing.Frame) *dataprocessing.Frame {
	return f.Reindex(like.Index()).Select(like.Columns()).FFill().BFill()
}

// BinOf returns the bin of a zone temperature given its heating and cooling
// setpoints. ok is false when any value is missing.
func BinOf(iat, hsp, csp float64) (bin int, ok bool) {
	if math.IsNaN(iat) || math.IsNaN(hsp) || math.IsNaN(csp) {
		return 0, false
	}

	r := math.Max(csp-hsp, 0)
	cut25 := hsp + 0.25*r
	cut50 := hsp + 0.50*r
	cut75 := hsp + 0.75*r

	switch {
	case iat < hsp:
		return 0, true
	case iat < cut25:
		return 1, true
	case iat >= cut25 && iat < cut50:
		return 2, true
	case iat >= cut50 && iat < cut75:
		return 3, true
	case iat >= cut75 && iat < csp:
		return 4, true
	case iat >= csp:
		return 5, true
	}
	return 0, false
}

// CategorizeBins sums the zonal cooling of every hour into the six comfort
// bins of domain.BinKeys. Temperatures and setpoints are aligned on the
// zonal cooling grid before comparison.
func CategorizeBins(iat, hsp, csp, zonal *dataprocessing.Frame) (*dataprocessing.Frame, error) {
	switch {
	case zonal.Empty():
		return nil, fmt.Errorf("%w: zonal cooling", domain.ErrEmptyInput)
	case iat.Empty():
		return nil, fmt.Errorf("%w: zone temperatures", domain.ErrEmptyInput)
	case hsp.Empty():
		return nil, fmt.Errorf("%w: heating setpoints", domain.ErrEmptyInput)
	case csp.Empty():
		return nil, fmt.Errorf("%w: cooling setpoints", domain.ErrEmptyInput)
	}

	iatA := align(iat, zonal)
	hspA := align(hsp, zonal)
	cspA := align(csp, zonal)

	binned := dataprocessing.NewFrame(zonal.Index(), domain.BinColumns())
	for i := 0; i < zonal.Len(); i++ {
		sums := make([]float64, len(domain.BinKeys))
		for j := 0; j < zonal.Width(); j++ {
			bin, ok := BinOf(iatA.At(i, j), hspA.At(i, j), cspA.At(i, j))
			if !ok {
				continue
			}
			if v := zonal.At(i, j); !math.IsNaN(v) {
				sums[bin] += v
			}
		}
		for b, v := range sums {
			binned.Set(i, b, v)
		}
	}
	return binned, nil
}
