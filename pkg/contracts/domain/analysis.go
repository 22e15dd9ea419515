package domain

// ZoneRank is one row of a zone ranking table.
type ZoneRank struct {
	Zone    string  `json:"zone"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// Ranking is an ordered top-N zone table with its display headers.
type Ranking struct {
	ValueLabel   string     `json:"value_label"`
	PercentLabel string     `json:"percent_label"`
	Rows         []ZoneRank `json:"rows"`
}

// Ranking headers
const (
	WastefulValueLabel    = "Wasteful Cooling (Bin 1)"
	WastefulPercentLabel  = "% of Total Waste"
	DemandingValueLabel   = "Total Cooling"
	DemandingPercentLabel = "% of Building Total"
)

// BuildingAnalysis is everything the preprocessing run stores per building.
type BuildingAnalysis struct {
	Name         string    `json:"name"`
	ZonalCooling FrameData `json:"zonal_cooling"`
	BinnedHourly FrameData `json:"binned_hourly"`
	BinnedWeekly FrameData `json:"binned_weekly"`
	TopWasteful  Ranking   `json:"top_wasteful"`
	TopDemanding Ranking   `json:"top_demanding"`
	IAT          FrameData `json:"iat"`
	HSP          FrameData `json:"hsp"`
	CSP          FrameData `json:"csp"`
	Airflow      FrameData `json:"airflow"`
}

// AnalysisArchive is the cached artifact written by the preprocess program.
type AnalysisArchive struct {
	Version   string                      `json:"version"`
	Buildings map[string]BuildingAnalysis `json:"buildings"`
}

// BuildingsInfo lists the buildings present in the archive.
type BuildingsInfo struct {
	Names []string `json:"names"`
}

// Summary totals the cooling energy of a binned frame by category.
type Summary struct {
	Total     float64 `json:"total"`
	Useful    float64 `json:"useful"`
	Excess    float64 `json:"excess"`
	Wasted    float64 `json:"wasted"`
	UsefulPct float64 `json:"useful_pct"`
	ExcessPct float64 `json:"excess_pct"`
	WastedPct float64 `json:"wasted_pct"`
}

// AnalysisView is the dashboard response for one building at one frequency.
type AnalysisView struct {
	Building     string    `json:"building"`
	Frequency    string    `json:"frequency"`
	Summary      Summary   `json:"summary"`
	Binned       FrameData `json:"binned"`
	Regrouped    FrameData `json:"regrouped"`
	TopWasteful  Ranking   `json:"top_wasteful"`
	TopDemanding Ranking   `json:"top_demanding"`
}

// ZoneDetail holds the measured and derived series of a single zone.
type ZoneDetail struct {
	Building string    `json:"building"`
	Zone     string    `json:"zone"`
	Series   FrameData `json:"series"`
}
