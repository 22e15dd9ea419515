package analysis

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// ProcessBuilding runs the full analysis of one building.
func ProcessBuilding(logger *slog.Logger, name string, in *dataprocessing.BuildingInputs, opts Options) (*domain.BuildingAnalysis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("building", name))

	if opts.FilterZones {
		filtered, removed := FilterZones(in, opts.MinZoneTemp, opts.MaxZoneTemp)
		if len(removed) > 0 {
			logger.Info("Removing zones with invalid median temperatures",
				slog.Int("count", len(removed)),
				slog.String("zones", strings.Join(removed, ", ")))
		}
		in = filtered
	}

	zonal, err := ZonalCooling(logger, name, ZonalInputs{
		AHUDat:       in.AHUDat,
		IAT:          in.IAT,
		Airflow:      in.Airflow,
		Map:          in.Map,
		Cooling:      in.Cooling,
		MaxSpanHours: opts.MaxSpanHours,
	})
	if err != nil {
		return nil, fmt.Errorf("zonal cooling calculation failed: %w", err)
	}
	if zonal.Empty() {
		return nil, fmt.Errorf("zonal cooling calculation returned no data: %w", domain.ErrNoValidZones)
	}

	binned, err := CategorizeBins(in.IAT, in.HSP, in.CSP, zonal)
	if err != nil {
		return nil, fmt.Errorf("IAT binning failed: %w", err)
	}

	weekly, err := Resample(binned, Weekly)
	if err != nil {
		return nil, err
	}

	bin1Total := binSum(weekly, domain.BinBelowHeating)

	logger.Debug("Building analysed",
		slog.Int("zones", zonal.Width()),
		slog.Int("hours", zonal.Len()),
		slog.Int("weeks", weekly.Len()))

	return &domain.BuildingAnalysis{
		Name:         name,
		ZonalCooling: zonal.Data(),
		BinnedHourly: binned.Data(),
		BinnedWeekly: weekly.Data(),
		TopWasteful:  TopWasteful(zonal, in.IAT, in.HSP, bin1Total, opts.TopN),
		TopDemanding: TopDemanding(zonal, opts.TopN),
		IAT:          in.IAT.Data(),
		HSP:          in.HSP.Data(),
		CSP:          in.CSP.Data(),
		Airflow:      in.Airflow.Data(),
	}, nil
}

// View renders a building analysis at the requested frequency.
func View(a *domain.BuildingAnalysis, freq Frequency) (*domain.AnalysisView, error) {
	binned, err := Resample(dataprocessing.FromData(a.BinnedHourly), freq)
	if err != nil {
		return nil, err
	}

	return &domain.AnalysisView{
		Building:     a.Name,
		Frequency:    string(freq),
		Summary:      Summarize(binned),
		Binned:       binned.Data(),
		Regrouped:    Regroup(binned).Data(),
		TopWasteful:  a.TopWasteful,
		TopDemanding: a.TopDemanding,
	}, nil
}

// ZoneDetail collects the measured series and the zonal cooling of a zone.
func ZoneDetail(a *domain.BuildingAnalysis, zone string) (*domain.ZoneDetail, error) {
	cooling := dataprocessing.FromData(a.ZonalCooling)
	if !cooling.HasColumn(zone) {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrZoneNotFound, zone, a.Name)
	}

	sources := []struct {
		name string
		data domain.FrameData
	}{
		{"iat", a.IAT},
		{"hsp", a.HSP},
		{"csp", a.CSP},
		{"airflow", a.Airflow},
		{"cooling", a.ZonalCooling},
	}

	// Union of the timestamps of every series, in time order.
	frames := make([]*dataprocessing.Frame, len(sources))
	for i, s := range sources {
		frames[i] = dataprocessing.FromData(s.data)
	}
	index := dataprocessing.UnionIndex(frames...)

	columns := make([]string, len(sources))
	rows := make([][]float64, len(index))
	for i := range rows {
		rows[i] = make([]float64, len(sources))
	}
	for k, s := range sources {
		columns[k] = s.name
		col, _ := frames[k].Reindex(index).Select([]string{zone}).Column(zone)
		for i, v := range col {
			rows[i][k] = v
		}
	}

	out, err := dataprocessing.NewFrameFromRows(index, columns, rows)
	if err != nil {
		return nil, err
	}
	return &domain.ZoneDetail{Building: a.Name, Zone: zone, Series: out.Data()}, nil
}
