// Package http implements the HTTP handlers of the cooling waste dashboard.
// Handlers are thin: they parse and validate the request, call a service and
// render the result. Every error goes through the central
// errors.ErrorHandler, which answers with an RFC 7807 problem document.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/buildings
//	GET  /api/buildings/{name}/analysis?freq=W
//	GET  /api/buildings/{name}/zones/{zone}
//	GET  /api/buildings/{name}/charts/{kind}.png?freq=W&normalize=false
//	GET  /api/buildings/{name}/export.xlsx
//	GET  /api/buildings/{name}/export.csv?freq=W
//	POST /api/analysis/custom            (multipart, one file per input key)
//	POST /api/operations/preprocess      (202, background operation)
//	GET  /api/operations/{id}
//	POST /api/operations/{id}/cancel
//	GET  /api/metrics/websocket
//
// The router itself is assembled by the app package, which also mounts
// /ws and /metrics.
package http
