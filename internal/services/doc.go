// Package services implements the application layer between the HTTP
// transport and the split pipeline.
//
// SplitService wraps a splitter.Pipeline with a trace span per split, the
// split business metrics and a completion log line. Handlers depend on it
// through small interfaces so they can be tested with mocks:
//
//	svc := services.NewSplitService(splitter.New(), logger,
//	    services.WithTracer(providers.Tracer),
//	    services.WithMetrics(metrics))
//	res, err := svc.Split(ctx, services.SourceJSON, splitter.Request{
//	    FilePayload: payload,
//	    DateColumn:  "Date",
//	})
//
// StageEventAdapter converts pipeline transitions into the messages of the
// /ws/split stream. HealthService backs the health and version endpoints.
package services
