package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Building Cooling Waste"
	AppVersion = "1.0.0"

	// Dashboard defaults
	DefaultHost  = "127.0.0.1"
	DefaultPort  = 8050
	DashboardURL = "http://127.0.0.1:8050"

	// File Paths (relative to the work directory)
	DefaultInputDir  = "test_app_data"
	DefaultOutputDir = "processed_data"
	BackupDirSuffix  = "_backup"

	// Processed artifact files
	ArchiveFileName       = "preloaded_analysis.json"
	BuildingsInfoFileName = "buildings_info.json"

	// Name of the building whose files sit directly in the input folder
	DefaultBuildingName = "Default Building"

	// Program names (".exe" is appended on Windows)
	PreprocessProgram = "preprocess"
	DashboardProgram  = "dashboard"

	// Cache Settings
	AnalysisCacheDuration = 15 * time.Minute
)

