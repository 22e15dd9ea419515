// Package contracts holds the values shared by the pre-processing program
// and the dashboard: the archive format version and the build stamp.
package contracts

import "runtime"

const (
	// DataFormatVersion is written into every processed archive. An archive
	// with another version is treated as missing.
	DataFormatVersion = "v1"

	APIVersion = "v1"
)

// Set with -ldflags "-X github.com/AlexisBnnft/Building-Waste/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Build describes the running binary.
type Build struct {
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	DataFormat string `json:"data_format"`
	APIVersion string `json:"api_version"`
}

// CurrentBuild returns the build stamp of this binary.
func CurrentBuild() Build {
	return Build{
		GitCommit:  GitCommit,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		DataFormat: DataFormatVersion,
		APIVersion: APIVersion,
	}
}
