// Package app wires the cooling waste dashboard together and manages its
// lifecycle: configuration, logging, telemetry, stores, services, the
// websocket hub and the HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration from the environment and optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Create the cache, the local archive store and the optional S3 mirror
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Start the HTTP server and the operation cleanup loop
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run returns after SIGINT, SIGTERM or cancellation of ctx, once every
// component has been shut down within the configured shutdown timeout.
package app
