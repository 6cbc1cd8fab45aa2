// Package http implements the HTTP and websocket handlers of the split
// service. Handlers stay thin: they bind and validate the request, call
// the split service and render the result.
//
// # Endpoints
//
//	POST /api/split          JSON {filePayload, dateColumn} -> {archivePayload, fileCount}
//	POST /api/split/upload   multipart (file, dateColumn)   -> zip attachment
//	GET  /ws/split           one JSON request, then stage events and a result
//	GET  /api/health[/live|/ready], /api/version
//	GET  /metrics            Prometheus scrape
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → SplitService → splitter.Pipeline
//	                                              ↓
//	HTTP Response ← Handler ← Result ←────────────┘
//
// # Error Handling
//
// Every failure is rendered by errors.ErrorHandler as RFC 7807 Problem
// Details. Pipeline failures keep their kind:
//
//	{
//	    "type": "/errors/split/parse",
//	    "title": "Parse Failed",
//	    "status": 422,
//	    "detail": "[parse] ...",
//	    "instance": "/api/split",
//	    "error_code": "PARSE_FAILED",
//	    "kind": "parse"
//	}
//
// On the websocket stream the same code is carried by the final "error"
// message instead.
//
// # Testing
//
// Handlers are tested with httptest against both a testify mock of
// SplitServiceInterface and the real service on generated workbooks.
package http
