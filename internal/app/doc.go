// Package app wires the split service together: configuration, logging,
// telemetry, services, router and HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML, .env and environment
//	2. Initialize logging and OpenTelemetry
//	3. Build the splitter pipeline and the services around it
//	4. Set up middleware and handlers on a chi router
//	5. Start the HTTP server
//
// # Usage
//
//	a, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// Tests build the application with New, passing their own configuration,
// logger and telemetry providers, and drive a.Router with httptest.
//
// # Routing
//
// Every route shares RequestID, RealIP, OTel, StructuredLogger, Recoverer,
// CORS, SecurityHeaders and the optional rate limiter. Split endpoints
// under /api/split also run under the request timeout and the error
// logging middleware. /ws/split is registered outside the timeout group
// since a stream stays open for the whole split.
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, then drains in-flight requests within
// Server.ShutdownTimeout and flushes telemetry. The package never calls
// os.Exit.
package app
