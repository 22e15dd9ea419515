package analysis

import "github.com/AlexisBnnft/Building-Waste/internal/config"

// Options tunes the analysis of a building.
type Options struct {
	// FilterZones enables the median temperature filter.
	FilterZones bool
	MinZoneTemp float64
	MaxZoneTemp float64
	TopN        int

	// MaxSpanHours caps the hourly grid; 0 means no cap.
	MaxSpanHours int
}

// DefaultOptions returns the options used by the preprocessing run.
func DefaultOptions() Options {
	return Options{
		FilterZones:  true,
		MinZoneTemp:  30,
		MaxZoneTemp:  200,
		TopN:         10,
		MaxSpanHours: 87600,
	}
}

// OptionsFromConfig builds options from the analysis configuration.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	opts := DefaultOptions()
	opts.MinZoneTemp = cfg.MinZoneTemp
	opts.MaxZoneTemp = cfg.MaxZoneTemp
	if cfg.TopZones > 0 {
		opts.TopN = cfg.TopZones
	}
	opts.MaxSpanHours = cfg.MaxSpanHours
	return opts
}
