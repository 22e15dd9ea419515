package analysis

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// ZonalInputs are the frames needed to split the building cooling by zone.
type ZonalInputs struct {
	AHUDat  *dataprocessing.Frame
	IAT     *dataprocessing.Frame
	Airflow *dataprocessing.Frame
	Map     *dataprocessing.ZoneMap
	Cooling *dataprocessing.Frame

	// MaxSpanHours rejects inputs whose union spans more hours; 0 means no limit.
	MaxSpanHours int
}

func (in ZonalInputs) validate() error {
	switch {
	case in.AHUDat.Empty():
		return fmt.Errorf("%w: AHU discharge temperatures", domain.ErrEmptyInput)
	case in.IAT.Empty():
		return fmt.Errorf("%w: zone temperatures", domain.ErrEmptyInput)
	case in.Airflow.Empty():
		return fmt.Errorf("%w: zone airflow", domain.ErrEmptyInput)
	case in.Map == nil || in.Map.Len() == 0:
		return fmt.Errorf("%w: zone to AHU map", domain.ErrEmptyInput)
	case in.Cooling.Empty():
		return fmt.Errorf("%w: building cooling", domain.ErrEmptyInput)
	}
	return nil
}

// checkSpan fails when the hourly grid over all inputs would exceed
// MaxSpanHours. The error names the input whose removal shrinks the span
// the most, which is where a mistyped timestamp usually sits.
func (in ZonalInputs) checkSpan() error {
	if in.MaxSpanHours <= 0 {
		return nil
	}
	keyed := []struct {
		key   string
		frame *dataprocessing.Frame
	}{
		{dataprocessing.InputAHUDat, in.AHUDat},
		{dataprocessing.InputIAT, in.IAT},
		{dataprocessing.InputAirflow, in.Airflow},
		{dataprocessing.InputCooling, in.Cooling},
	}

	frames := make([]*dataprocessing.Frame, len(keyed))
	for i, k := range keyed {
		frames[i] = k.frame
	}
	start, end, _ := dataprocessing.SpanOf(frames...)
	span := spanHours(start, end)
	if span <= in.MaxSpanHours {
		return nil
	}

	culprit, shortest := keyed[0].key, span
	for i, k := range keyed {
		others := make([]*dataprocessing.Frame, 0, len(frames)-1)
		others = append(others, frames[:i]...)
		others = append(others, frames[i+1:]...)
		s, e, ok := dataprocessing.SpanOf(others...)
		if !ok {
			continue
		}
		if h := spanHours(s, e); h < shortest {
			culprit, shortest = k.key, h
		}
	}

	return &dataprocessing.InputError{
		Key: culprit,
		Err: fmt.Errorf("%w: %s to %s covers %d hours, limit is %d", domain.ErrSpanTooLong,
			start.Format(time.DateTime), end.Format(time.DateTime), span, in.MaxSpanHours),
	}
}

// spanHours is the number of rows of the hourly grid from start to end.
func spanHours(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/time.Hour) + 1
}

// ZonalCooling distributes the building cooling across zones.
//
// All inputs are aligned on an hourly grid spanning their union, then
// forward and back filled. Each zone gets a share proportional to
// max((iat - dat) * airflow, 0), where dat is the discharge temperature of
// the AHU serving the zone. Hours where no zone receives cooling are
// dropped.
func ZonalCooling(logger *slog.Logger, building string, in ZonalInputs) (*dataprocessing.Frame, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if err := in.checkSpan(); err != nil {
		return nil, err
	}

	assignments, err := in.Map.Assignments()
	if err != nil {
		return nil, err
	}

	start, end, _ := dataprocessing.SpanOf(in.AHUDat, in.IAT, in.Airflow, in.Cooling)
	grid := dataprocessing.HourlyIndex(start, end)

	ahuDat := in.AHUDat.Reindex(grid).FFill().BFill()
	iat := in.IAT.Reindex(grid).FFill().BFill()
	airflow := in.Airflow.Reindex(grid).FFill().BFill()
	// The first column of the cooling frame is the building total.
	cooling, _ := in.Cooling.Reindex(grid).FFill().BFill().Column(in.Cooling.Columns()[0])

	// Zones in map order that have both a temperature and an airflow.
	var (
		zones   []string
		zoneAHU = make(map[string]string)
	)
	for _, a := range assignments {
		if _, seen := zoneAHU[a.Zone]; seen {
			continue
		}
		if !iat.HasColumn(a.Zone) || !airflow.HasColumn(a.Zone) {
			continue
		}
		zoneAHU[a.Zone] = a.AHU
		zones = append(zones, a.Zone)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: no zone of the map has both temperature and airflow data", domain.ErrNoValidZones)
	}

	warned := make(map[string]bool)
	for _, zone := range zones {
		ahu := zoneAHU[zone]
		if !ahuDat.HasColumn(ahu) && !warned[ahu] {
			warned[ahu] = true
			logger.Warn("AHU found in map but not in AHU data, its zones get no cooling",
				slog.String("building", building),
				slog.String("ahu", ahu))
		}
	}

	iat = iat.Select(zones)
	airflow = airflow.Select(zones)
	dat := dataprocessing.NewFrame(grid, zones)
	for j, zone := range zones {
		col, ok := ahuDat.Column(zoneAHU[zone])
		if !ok {
			continue
		}
		for i, v := range col {
			dat.Set(i, j, v)
		}
	}

	prop := dataprocessing.NewFrame(grid, zones)
	for i := range grid {
		for j := range zones {
			p := (iat.At(i, j) - dat.At(i, j)) * airflow.At(i, j)
			if p < 0 {
				p = 0
			}
			prop.Set(i, j, p)
		}
	}

	totals := prop.RowSums()
	zonal := dataprocessing.NewFrame(grid, zones)
	for i := range grid {
		tot := totals[i]
		for j := range zones {
			v := math.NaN()
			if tot != 0 {
				v = cooling[i] * prop.At(i, j) / tot
			}
			if math.IsNaN(v) {
				v = 0
			}
			zonal.Set(i, j, v)
		}
	}

	return zonal.FilterRows(func(_ time.Time, row []float64) bool {
		for _, v := range row {
			if v != 0 {
				return true
			}
		}
		return false
	}), nil
}
