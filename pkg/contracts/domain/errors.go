package domain

import "errors"

// Sentinel errors shared by the analysis pipeline, the store and the API.
var (
	ErrDataDirNotFound   = errors.New("data directory not found")
	ErrMissingFile       = errors.New("required file missing")
	ErrEmptyInput        = errors.New("input data is empty")
	ErrInvalidZoneMap    = errors.New("invalid zone map")
	ErrNoValidZones      = errors.New("no valid zones")
	ErrSpanTooLong       = errors.New("time span too long")
	ErrNothingProcessed  = errors.New("no building was processed successfully")
	ErrArchiveNotFound   = errors.New("processed archive not found")
	ErrBuildingNotFound  = errors.New("building not found")
	ErrZoneNotFound      = errors.New("zone not found")
	ErrUnknownFrequency  = errors.New("unknown resample frequency")
	ErrUnknownChart      = errors.New("unknown chart")
	ErrInvalidManifest   = errors.New("invalid dependency manifest")
	ErrOperationRunning  = errors.New("operation already running")
	ErrOperationNotFound = errors.New("operation not found")
)
