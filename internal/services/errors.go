package services

import "errors"

// Service errors not covered by the domain sentinels
var (
	ErrOperationIDRequired = errors.New("operation ID is required")
	ErrServiceStopped      = errors.New("service stopped")
)
