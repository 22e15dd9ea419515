// Package services implements the business logic behind the dashboard and
// the preprocessing program. Handlers stay thin: they parse the request,
// call a service and render the result.
//
// # Services
//
//	AnalysisService    serves building analyses from the processed archive,
//	                   renders charts and exports, and analyses uploads
//	PreprocessService  discovers buildings, analyses them concurrently and
//	                   writes the archive
//	OperationService   runs preprocessing in the background through the
//	                   operations engine and reports progress on the hub
//	HealthService      health, readiness and version information
//
// Every service takes a *slog.Logger; a nil logger falls back to the
// global logger of the infrastructure package.
package services
